package score

import (
	"sort"

	"github.com/coal/siterisk/internal/model"
)

// DefaultCriticalCapabilities are the host capabilities that grant
// site-wide control.
var DefaultCriticalCapabilities = []string{
	"moodle/site:config",
	"moodle/user:delete",
	"moodle/role:assign",
	"moodle/course:manageactivities",
	"moodle/course:update",
	"moodle/user:update",
	"moodle/role:manage",
	"moodle/role:override",
	"moodle/site:doanything",
	"moodle/user:create",
	"moodle/backup:backupcourse",
	"moodle/restore:restorecourse",
}

// DefaultNonAdminArchetypes should never hold critical capabilities.
var DefaultNonAdminArchetypes = []string{
	"student", "teacher", "editingteacher", "coursecreator", "user", "guest",
}

// Heat-map tier thresholds over a role's critical capability count.
const (
	DangerCapCount  = 8
	WarningCapCount = 3
	InfoCapCount    = 1
)

// RoleScorer scores roles against a critical capability list.
type RoleScorer struct {
	critical map[string]struct{}
	nonAdmin map[string]struct{}
}

// NewRoleScorer builds a scorer. Nil lists select the defaults.
func NewRoleScorer(critical, nonAdminArchetypes []string) *RoleScorer {
	if critical == nil {
		critical = DefaultCriticalCapabilities
	}
	if nonAdminArchetypes == nil {
		nonAdminArchetypes = DefaultNonAdminArchetypes
	}
	return &RoleScorer{critical: toSet(critical), nonAdmin: toSet(nonAdminArchetypes)}
}

// Role builds the risk profile of one role. A non-admin role holding a
// critical capability counts it both as a critical grant and as an override.
func (s *RoleScorer) Role(b model.RoleBundle) model.RoleRiskProfile {
	p := model.RoleRiskProfile{
		RoleID:    b.ID,
		Shortname: b.Shortname,
		Archetype: b.Archetype,
	}
	_, nonAdmin := s.nonAdmin[b.Archetype]

	var overrides []model.CapabilityFinding
	for _, g := range b.Grants {
		if g.Permission != model.PermissionAllow {
			continue
		}
		if _, ok := s.critical[g.Capability]; !ok {
			continue
		}
		p.CriticalCaps = append(p.CriticalCaps, g.Capability)
		if nonAdmin {
			p.Overrides = append(p.Overrides, g.Capability)
			overrides = append(overrides, model.CapabilityFinding{
				Capability: g.Capability,
				Reason:     "critical capability on " + b.Archetype + " archetype",
			})
		}
	}
	p.CriticalCapCount = len(p.CriticalCaps)
	p.RiskScore = Capability(model.CapabilityFindings{
		CriticalCapsNonAdmin: overrides,
		SuspiciousOverrides:  overrides,
	})
	p.Tier = HeatTier(p.CriticalCapCount)
	return p
}

// HeatTier buckets a critical capability count.
func HeatTier(count int) model.HeatTier {
	switch {
	case count >= DangerCapCount:
		return model.TierDanger
	case count >= WarningCapCount:
		return model.TierWarning
	case count >= InfoCapCount:
		return model.TierInfo
	default:
		return model.TierNone
	}
}

// Heatmap lists roles by risk score, highest first. Ties keep role id order.
func Heatmap(roles []model.RoleRiskProfile) []model.HeatmapRow {
	rows := make([]model.HeatmapRow, 0, len(roles))
	for _, r := range roles {
		rows = append(rows, model.HeatmapRow{
			RoleID:           r.RoleID,
			Shortname:        r.Shortname,
			CriticalCapCount: r.CriticalCapCount,
			RiskScore:        r.RiskScore,
			Tier:             r.Tier,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].RiskScore != rows[j].RiskScore {
			return rows[i].RiskScore > rows[j].RiskScore
		}
		return rows[i].RoleID < rows[j].RoleID
	})
	return rows
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[it] = struct{}{}
	}
	return set
}
