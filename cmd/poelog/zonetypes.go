package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/poelog/poelog-go/pkg/poelog"
	"github.com/poelog/poelog-go/pkg/poelog/zone"
)

// ValidZoneTypeNames returns a sorted list of valid zone type names.
// Delegates to zone.TypeNames() as the single source of truth.
func ValidZoneTypeNames() []string {
	return zone.TypeNames()
}

// NormalizeZoneTypes converts CLI string values to a poelog.ZoneType slice.
// It handles case-insensitivity, whitespace trimming, and duplicate removal.
func NormalizeZoneTypes(values []string) ([]poelog.ZoneType, error) {
	if len(values) == 0 {
		return nil, nil
	}

	result := make([]poelog.ZoneType, 0, len(values))
	seen := make(map[poelog.ZoneType]struct{})

	for _, raw := range values {
		if strings.TrimSpace(raw) == "" {
			return nil, fmt.Errorf("empty zone type provided (input: %q); valid types: %s", raw, strings.Join(ValidZoneTypeNames(), ", "))
		}

		t, ok := zone.ParseType(raw)
		if !ok {
			return nil, fmt.Errorf("unknown zone type %q (valid: %s)", raw, strings.Join(ValidZoneTypeNames(), ", "))
		}

		if _, dup := seen[t]; dup {
			continue // ignore duplicates silently
		}
		seen[t] = struct{}{}
		result = append(result, t)
	}

	return result, nil
}

// RejectOverlap returns an error if any zone type is in both includes and excludes.
func RejectOverlap(includes, excludes []poelog.ZoneType) error {
	ex := make(map[poelog.ZoneType]struct{}, len(excludes))
	for _, t := range excludes {
		ex[t] = struct{}{}
	}
	for _, t := range includes {
		if _, ok := ex[t]; ok {
			return fmt.Errorf("zone type %q cannot be both included and excluded", t)
		}
	}
	return nil
}

// normalizeFilter validates --include-types and --exclude-types together.
func normalizeFilter(include, exclude []string) ([]poelog.ZoneType, []poelog.ZoneType, error) {
	includes, err := NormalizeZoneTypes(include)
	if err != nil {
		return nil, nil, err
	}
	excludes, err := NormalizeZoneTypes(exclude)
	if err != nil {
		return nil, nil, err
	}
	if err := RejectOverlap(includes, excludes); err != nil {
		return nil, nil, err
	}
	return includes, excludes, nil
}

var zoneTypesCmd = &cobra.Command{
	Use:   "zone-types",
	Short: "List zone types and the keywords that select them",
	Long: `List the zone types a zone name can be classified as.

Classification checks hideout keywords first, then town keywords, then map
keywords, then the campaign pattern ("The ..." or "Act N"). The first match
wins. Extra keywords from the config file (zones.hideout, zones.town,
zones.map) are checked before the built-in ones.

Examples:
  # Show all types and keywords
  poelog zone-types

  # Show how a name would be classified
  poelog zone-types "Celestial Hideout" "Glacier Map"`,
	RunE: runZoneTypes,
}

func runZoneTypes(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if len(args) > 0 {
		classifier := cfg.Classifier()
		for _, name := range args {
			fmt.Fprintf(out, "%s\t%s\n", name, classifier.Classify(name))
		}
		return nil
	}

	rules := zone.DefaultRules().Merge(cfg.Zones)
	keywords := map[zone.Type][]string{
		zone.Hideout:  rules.Hideout,
		zone.Town:     rules.Town,
		zone.Map:      rules.Map,
		zone.Campaign: {`"The ..." prefix`, `"Act N"`},
		zone.Unknown:  {"anything else"},
	}
	for _, name := range ValidZoneTypeNames() {
		t, _ := zone.ParseType(name)
		fmt.Fprintf(out, "%s: %s\n", name, strings.Join(keywords[t], ", "))
	}
	return nil
}
