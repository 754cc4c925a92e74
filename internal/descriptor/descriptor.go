// Package descriptor extracts capability declarations from a plugin's
// access file without executing it.
package descriptor

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/coal/siterisk/internal/model"
)

// Host risk bits carried by a capability declaration.
const (
	RiskManageTrust = 0x0001
	RiskConfig      = 0x0002
	RiskXSS         = 0x0004
	RiskPersonal    = 0x0008
	RiskSpam        = 0x0010
	RiskDataLoss    = 0x0020
)

// CriticalRiskMask selects the bits that make a capability critical.
const CriticalRiskMask = RiskXSS | RiskConfig | RiskPersonal | RiskManageTrust

var riskNames = map[string]int{
	"RISK_MANAGETRUST": RiskManageTrust,
	"RISK_CONFIG":      RiskConfig,
	"RISK_XSS":         RiskXSS,
	"RISK_PERSONAL":    RiskPersonal,
	"RISK_SPAM":        RiskSpam,
	"RISK_DATALOSS":    RiskDataLoss,
}

// dangerousNames are capability name fragments a plugin should rarely define.
var dangerousNames = []string{
	"delete", "config", "override", "assign",
	"managecourse", "manageactivities", "backup",
}

// Capability is one declared capability.
type Capability struct {
	Name        string `json:"name"`
	RiskBitmask int    `json:"riskbitmask"`
}

var (
	capKeyPattern   = regexp.MustCompile(`['"]([a-z0-9_]+/[a-z0-9_]+:[a-z0-9_]+)['"]\s*=>\s*(?:array\s*\(|\[)`)
	riskmaskPattern = regexp.MustCompile(`['"]riskbitmask['"]\s*=>\s*([^,\]\)\n]+)`)
)

// Parse reads capability declarations from either the host's access-file
// syntax or a YAML/JSON document with a top-level "capabilities" mapping.
func Parse(text string) ([]Capability, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	if strings.Contains(text, "$capabilities") || strings.HasPrefix(strings.TrimSpace(text), "<?php") {
		return parseAccessFile(text)
	}
	return parseYAML(text)
}

func parseAccessFile(text string) ([]Capability, error) {
	keys := capKeyPattern.FindAllStringSubmatchIndex(text, -1)
	caps := make([]Capability, 0, len(keys))
	for i, k := range keys {
		end := len(text)
		if i+1 < len(keys) {
			end = keys[i+1][0]
		}
		c := Capability{Name: text[k[2]:k[3]]}
		if m := riskmaskPattern.FindStringSubmatch(text[k[1]:end]); m != nil {
			mask, err := ParseRiskMask(m[1])
			if err != nil {
				return nil, fmt.Errorf("capability %s: %w", c.Name, err)
			}
			c.RiskBitmask = mask
		}
		caps = append(caps, c)
	}
	return caps, nil
}

func parseYAML(text string) ([]Capability, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return nil, fmt.Errorf("parsing descriptor YAML: %w", err)
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("descriptor must be a mapping")
	}
	root := doc.Content[0]

	var capsNode *yaml.Node
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value == "capabilities" {
			capsNode = root.Content[i+1]
		}
	}
	if capsNode == nil {
		return nil, nil
	}
	if capsNode.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("capabilities must be a mapping")
	}

	// Walk the node pairs to keep declaration order.
	caps := make([]Capability, 0, len(capsNode.Content)/2)
	for i := 0; i+1 < len(capsNode.Content); i += 2 {
		var def struct {
			RiskBitmask string `yaml:"riskbitmask"`
		}
		name := capsNode.Content[i].Value
		if err := capsNode.Content[i+1].Decode(&def); err != nil {
			return nil, fmt.Errorf("capability %s: %w", name, err)
		}
		mask, err := ParseRiskMask(def.RiskBitmask)
		if err != nil {
			return nil, fmt.Errorf("capability %s: %w", name, err)
		}
		caps = append(caps, Capability{Name: name, RiskBitmask: mask})
	}
	return caps, nil
}

// ParseRiskMask evaluates an expression such as "RISK_XSS | RISK_CONFIG" or
// "0x0006". An empty expression is zero.
func ParseRiskMask(expr string) (int, error) {
	mask := 0
	for _, tok := range strings.Split(expr, "|") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if bit, ok := riskNames[strings.ToUpper(tok)]; ok {
			mask |= bit
			continue
		}
		n, err := strconv.ParseInt(tok, 0, 64)
		if err != nil {
			return 0, fmt.Errorf("unknown risk token %q", tok)
		}
		mask |= int(n)
	}
	return mask, nil
}

// Findings classifies declared capabilities. A capability whose risk bits
// intersect CriticalRiskMask is critical; one whose name contains a
// dangerous fragment is a suspicious override. Each capability yields at
// most one finding of each kind.
func Findings(caps []Capability) model.CapabilityFindings {
	var f model.CapabilityFindings
	for _, c := range caps {
		if c.RiskBitmask&CriticalRiskMask != 0 {
			f.CriticalCapsNonAdmin = append(f.CriticalCapsNonAdmin, model.CapabilityFinding{
				Capability:  c.Name,
				RiskBitmask: c.RiskBitmask,
				Reason:      "declares critical risk bits",
			})
		}
		lower := strings.ToLower(c.Name)
		for _, frag := range dangerousNames {
			if strings.Contains(lower, frag) {
				f.SuspiciousOverrides = append(f.SuspiciousOverrides, model.CapabilityFinding{
					Capability: c.Name,
					Reason:     "capability name matches dangerous pattern: " + frag,
				})
				break
			}
		}
	}
	return f
}

// Extract parses text and classifies its capabilities in one step.
func Extract(text string) (model.CapabilityFindings, error) {
	caps, err := Parse(text)
	if err != nil {
		return model.CapabilityFindings{}, err
	}
	return Findings(caps), nil
}
