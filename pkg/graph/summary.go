package graph

import (
	"fmt"
	"sort"
	"strings"
)

const (
	summaryRule     = 60
	sampleUsers     = 3
	sampleListings  = 5
	topPackageCount = 10
)

// HumanSummary renders a deterministic multi-section text summary of a
// snapshot: totals, high-risk package ranking, the most-used packages and a
// sample of per-component dependency listings. It reads only the Graph; no
// hidden state.
func HumanSummary(g *Graph) string {
	var b strings.Builder
	rule := strings.Repeat("=", summaryRule)
	sub := strings.Repeat("-", summaryRule)

	fmt.Fprintf(&b, "%s\nDEPENDENCY GRAPH SUMMARY\n%s\n\n", rule, rule)
	fmt.Fprintf(&b, "Total Components: %d\n", g.Stats.Components)
	fmt.Fprintf(&b, "Unique Packages: %d\n", g.Stats.Packages)
	if g.Stats.ParseErrors > 0 {
		fmt.Fprintf(&b, "Components with Parse Errors: %d\n", g.Stats.ParseErrors)
	}
	b.WriteString("\n")

	type ranked struct {
		pkg    string
		usages []Usage
	}

	var highRisk []ranked
	var all []ranked
	for pkg, usages := range g.Index {
		entry := ranked{pkg: pkg, usages: usages}
		all = append(all, entry)
		if len(usages) > 0 && usages[0].HighRisk {
			highRisk = append(highRisk, entry)
		}
	}
	byUsageDesc := func(entries []ranked) {
		sort.Slice(entries, func(i, j int) bool {
			if len(entries[i].usages) != len(entries[j].usages) {
				return len(entries[i].usages) > len(entries[j].usages)
			}
			return entries[i].pkg < entries[j].pkg
		})
	}
	byUsageDesc(highRisk)
	byUsageDesc(all)

	if len(highRisk) > 0 {
		fmt.Fprintf(&b, "HIGH-RISK PACKAGES:\n%s\n", sub)
		for _, entry := range highRisk {
			fmt.Fprintf(&b, "  %s: used by %d component(s)\n", entry.pkg, len(entry.usages))
			for i, usage := range entry.usages {
				if i >= sampleUsers {
					fmt.Fprintf(&b, "    - ... and %d more\n", len(entry.usages)-sampleUsers)
					break
				}
				fmt.Fprintf(&b, "    - %s (%s)\n", usage.ComponentName, usage.Constraint)
			}
		}
		b.WriteString("\n")
	}

	if len(all) > 0 {
		fmt.Fprintf(&b, "TOP %d MOST-USED PACKAGES:\n%s\n", topPackageCount, sub)
		for i, entry := range all {
			if i >= topPackageCount {
				break
			}
			marker := ""
			if len(entry.usages) > 0 && entry.usages[0].HighRisk {
				marker = " [HIGH RISK]"
			}
			fmt.Fprintf(&b, "  %s: %d component(s)%s\n", entry.pkg, len(entry.usages), marker)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "SAMPLE COMPONENT DEPENDENCIES:\n%s\n", sub)
	shown := 0
	for _, id := range g.Order {
		if shown >= sampleListings {
			break
		}
		component := g.Components[id]
		if component.Failed() || len(component.Requirements) == 0 {
			continue
		}
		fmt.Fprintf(&b, "%s:\n", component.Name)
		for _, req := range component.Requirements {
			marker := ""
			if req.HighRisk {
				marker = " [!]"
			}
			fmt.Fprintf(&b, "  - %s %s%s\n", req.Package, req.Constraint, marker)
		}
		b.WriteString("\n")
		shown++
	}
	if shown < len(g.Components) {
		fmt.Fprintf(&b, "... and %d more components\n\n", len(g.Components)-shown)
	}

	b.WriteString(rule + "\n")
	return b.String()
}
