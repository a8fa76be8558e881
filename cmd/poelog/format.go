package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/poelog/poelog-go/pkg/loot"
	"github.com/poelog/poelog-go/pkg/poelog"
)

// ValidFormats lists the accepted --format values.
var ValidFormats = map[string]bool{
	"jsonl":  true,
	"pretty": true,
	"yaml":   true,
}

const labelWidth = 16

var (
	styleTime    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	styleTitle   = lipgloss.NewStyle().Bold(true)
	styleLabel   = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(labelWidth)
	styleValue   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	styleChaos   = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	styleSection = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245"))

	zoneStyles = map[poelog.ZoneType]lipgloss.Style{
		poelog.ZoneMap:      lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true),
		poelog.ZoneHideout:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		poelog.ZoneTown:     lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		poelog.ZoneCampaign: lipgloss.NewStyle().Foreground(lipgloss.Color("180")),
		poelog.ZoneUnknown:  lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	}

	stateStyles = map[loot.State]lipgloss.Style{
		loot.StatePending:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		loot.StateActive:    lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
		loot.StatePaused:    lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		loot.StateCompleted: lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
	}
)

// OutputEvent writes a zone change in the given format.
func OutputEvent(format string, ev poelog.ChangeEvent, w io.Writer) error {
	switch format {
	case "jsonl":
		return OutputJSON(ev, w)
	case "pretty":
		return OutputPretty(ev, w)
	case "yaml":
		return OutputYAML(ev, w)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// OutputJSON writes v as a single JSON line.
func OutputJSON(v any, w io.Writer) error {
	return json.NewEncoder(w).Encode(v)
}

// OutputYAML writes v as one YAML document.
func OutputYAML(v any, w io.Writer) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, "---\n"); err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// OutputPretty writes a zone change as one human-readable line.
func OutputPretty(ev poelog.ChangeEvent, w io.Writer) error {
	ts := styleTime.Render(ev.Timestamp.Format("15:04:05"))
	style, ok := zoneStyles[ev.ZoneType]
	if !ok {
		style = zoneStyles[poelog.ZoneUnknown]
	}
	line := fmt.Sprintf("[%s] > %s %s", ts, style.Render(ev.ZoneName), "("+string(ev.ZoneType)+")")
	if ev.AreaLevel != nil {
		line += fmt.Sprintf(" lvl %d", *ev.AreaLevel)
	}
	_, err := fmt.Fprintln(w, line)
	return err
}

// OutputMapRun writes a completed map run as one human-readable line.
func OutputMapRun(run *loot.MapRun, w io.Writer) error {
	end := time.Now()
	if run.EndedAt != nil {
		end = *run.EndedAt
	}
	line := fmt.Sprintf("[%s] # %s finished in %s: %d drops, %s",
		styleTime.Render(end.Format("15:04:05")),
		zoneStyles[poelog.ZoneMap].Render(run.MapName),
		formatDuration(run.Duration(end)),
		run.DropCount(),
		styleChaos.Render(formatChaos(run.TotalChaosValue())))
	_, err := fmt.Fprintln(w, line)
	return err
}

// OutputStateChange writes a session state change as one line.
func OutputStateChange(old, new loot.State, at time.Time, w io.Writer) error {
	_, err := fmt.Fprintf(w, "[%s] * session %s -> %s\n",
		styleTime.Render(at.Format("15:04:05")),
		stateStyles[old].Render(old.String()),
		stateStyles[new].Render(new.String()))
	return err
}

// summaryRecord is the machine-readable form of SessionStats with
// durations rendered as strings.
type summaryRecord struct {
	SessionID       string         `json:"session_id" yaml:"session_id"`
	Name            string         `json:"name" yaml:"name"`
	League          string         `json:"league" yaml:"league"`
	State           string         `json:"state" yaml:"state"`
	AutoDetected    bool           `json:"auto_detected" yaml:"auto_detected"`
	StartedAt       time.Time      `json:"started_at" yaml:"started_at"`
	Duration        string         `json:"duration" yaml:"duration"`
	TotalMaps       int            `json:"total_maps" yaml:"total_maps"`
	TotalDrops      int            `json:"total_drops" yaml:"total_drops"`
	TotalChaosValue float64        `json:"total_chaos_value" yaml:"total_chaos_value"`
	ChaosPerHour    float64        `json:"chaos_per_hour" yaml:"chaos_per_hour"`
	MapsPerHour     float64        `json:"maps_per_hour" yaml:"maps_per_hour"`
	AvgMapTime      string         `json:"avg_map_time" yaml:"avg_map_time"`
	AvgChaosPerMap  float64        `json:"avg_chaos_per_map" yaml:"avg_chaos_per_map"`
	TopDrops        []dropRecord   `json:"top_drops,omitempty" yaml:"top_drops,omitempty"`
	DropsByRarity   map[string]int `json:"drops_by_rarity,omitempty" yaml:"drops_by_rarity,omitempty"`
}

type dropRecord struct {
	ItemName   string  `json:"item_name" yaml:"item_name"`
	StackSize  int     `json:"stack_size" yaml:"stack_size"`
	TotalValue float64 `json:"total_value" yaml:"total_value"`
}

func newSummaryRecord(st loot.SessionStats) summaryRecord {
	rec := summaryRecord{
		SessionID:       st.SessionID,
		Name:            st.Name,
		League:          st.League,
		State:           st.State.String(),
		AutoDetected:    st.AutoDetected,
		StartedAt:       st.StartedAt,
		Duration:        formatDuration(st.Duration),
		TotalMaps:       st.TotalMaps,
		TotalDrops:      st.TotalDrops,
		TotalChaosValue: round2(st.TotalChaosValue),
		ChaosPerHour:    round2(st.ChaosPerHour),
		MapsPerHour:     round2(st.MapsPerHour),
		AvgMapTime:      formatDuration(st.AvgMapTime),
		AvgChaosPerMap:  round2(st.AvgChaosPerMap),
	}
	for _, d := range st.TopDrops {
		rec.TopDrops = append(rec.TopDrops, dropRecord{ItemName: d.ItemName, StackSize: d.StackSize, TotalValue: round2(d.TotalValue())})
	}
	if len(st.DropsByRarity) > 0 {
		rec.DropsByRarity = make(map[string]int, len(st.DropsByRarity))
		for r, n := range st.DropsByRarity {
			rec.DropsByRarity[string(r)] = n
		}
	}
	return rec
}

// OutputSummary writes session statistics in the given format.
func OutputSummary(format string, st loot.SessionStats, w io.Writer) error {
	switch format {
	case "jsonl":
		return OutputJSON(newSummaryRecord(st), w)
	case "yaml":
		return OutputYAML(newSummaryRecord(st), w)
	case "pretty":
		return outputSummaryPretty(st, w)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func outputSummaryPretty(st loot.SessionStats, w io.Writer) error {
	var b strings.Builder

	b.WriteString(styleTitle.Render("Session: "+st.Name) + "\n")
	b.WriteString(strings.Repeat("─", 40) + "\n")

	writeRow(&b, "League", st.League)
	writeRow(&b, "State", stateStyles[st.State].Render(st.State.String()))
	writeRow(&b, "Started", st.StartedAt.Format("2006-01-02 15:04"))
	writeRow(&b, "Duration", formatDuration(st.Duration))
	writeRow(&b, "Maps", fmt.Sprintf("%d (%.1f/h)", st.TotalMaps, st.MapsPerHour))
	writeRow(&b, "Avg map time", formatDuration(st.AvgMapTime))
	writeRow(&b, "Drops", fmt.Sprintf("%d", st.TotalDrops))
	writeRow(&b, "Total value", styleChaos.Render(formatChaos(st.TotalChaosValue)))
	writeRow(&b, "Chaos/hour", styleChaos.Render(formatChaos(st.ChaosPerHour)))
	writeRow(&b, "Avg per map", formatChaos(st.AvgChaosPerMap))

	if len(st.DropsByRarity) > 0 {
		b.WriteString("\n" + styleSection.Render("By rarity") + "\n")
		rarities := make([]string, 0, len(st.DropsByRarity))
		for r := range st.DropsByRarity {
			rarities = append(rarities, string(r))
		}
		sort.Strings(rarities)
		for _, r := range rarities {
			writeRow(&b, r, fmt.Sprintf("%d", st.DropsByRarity[loot.Rarity(r)]))
		}
	}

	if len(st.TopDrops) > 0 {
		b.WriteString("\n" + styleSection.Render("Top drops") + "\n")
		for i, d := range st.TopDrops {
			name := d.ItemName
			if d.StackSize > 1 {
				name = fmt.Sprintf("%s x%d", name, d.StackSize)
			}
			fmt.Fprintf(&b, "%2d. %s  %s\n", i+1, name, styleChaos.Render(formatChaos(d.TotalValue())))
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// OutputSessionLine writes one archived session as a single line.
func OutputSessionLine(s *loot.Session, w io.Writer) error {
	_, err := fmt.Fprintf(w, "%s  %s  %-24s  %3d maps  %4d drops  %s\n",
		s.ID[:min(8, len(s.ID))],
		s.StartedAt.Format("2006-01-02 15:04"),
		s.Name,
		s.TotalMaps(),
		s.TotalDrops(),
		formatChaos(s.TotalChaosValue()))
	return err
}

func writeRow(b *strings.Builder, label, value string) {
	b.WriteString(styleLabel.Render(label) + styleValue.Render(value) + "\n")
}

func formatChaos(v float64) string {
	return fmt.Sprintf("%.1fc", v)
}

// formatDuration renders d as e.g. "1h02m03s", rounded to seconds.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
