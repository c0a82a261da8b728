package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Terr/phoenix-wright-2-onifier/internal/cli/config"
	"github.com/Terr/phoenix-wright-2-onifier/internal/cli/output"
	"github.com/Terr/phoenix-wright-2-onifier/internal/onify"
	"github.com/Terr/phoenix-wright-2-onifier/internal/sdat"
)

// InspectOptions holds options for the inspect command.
type InspectOptions struct {
	Filter string
}

// SequenceInfo is one sequence row of inspect output.
type SequenceInfo struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	BankID   int    `json:"bank_id"`
	BankName string `json:"bank_name,omitempty"`
	Size     int    `json:"size"`
}

// BankInfo is one bank row of inspect output.
type BankInfo struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	Instruments    int    `json:"instruments"`
	WaveArchiveIDs []int  `json:"wave_archive_ids"`
}

// WaveArchiveInfo is one wave archive row of inspect output.
type WaveArchiveInfo struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Samples int    `json:"samples"`
	Size    int    `json:"size"`
}

// InspectOutput is the JSON form of inspect.
type InspectOutput struct {
	Title         string            `json:"title"`
	GameCode      string            `json:"game_code"`
	SoundDataSize int               `json:"sound_data_size"`
	Sequences     []SequenceInfo    `json:"sequences"`
	Banks         []BankInfo        `json:"banks"`
	WaveArchives  []WaveArchiveInfo `json:"wave_archives"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand() *cobra.Command {
	opts := &InspectOptions{}

	cmd := &cobra.Command{
		Use:   "inspect <rom>",
		Short: "List the sequences, banks and wave archives in a ROM",
		Long: `Read the sound archive of a ROM and list its sequences, banks and wave
archives with the IDs that link them together.

Entries without a value (null entries) are listed so positions stay visible.`,
		Example: `  # Everything in the second game's sound archive
  pw2-onifier inspect pw2.nds

  # Only entries whose name contains BGM07
  pw2-onifier inspect pw2.nds --filter BGM07

  # Machine-readable
  pw2-onifier inspect pw2.nds -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Filter, "filter", "f", "", "Only list entries whose name contains this text")

	return cmd
}

func runInspect(cmd *cobra.Command, path string, opts *InspectOptions) error {
	cfg := config.GetConfig(cmd.Context())
	logger := config.GetLogger(cmd.Context())

	rom, archive, err := onify.Open(path, cfg.SdatPath)
	if err != nil {
		return err
	}
	raw, err := rom.ReadFile(cfg.SdatPath)
	if err != nil {
		return err
	}
	logger.Debug("inspecting", "path", path, "sound_data", cfg.SdatPath)

	out := buildInspectOutput(archive, opts.Filter)
	out.Title, out.GameCode, out.SoundDataSize = rom.Title(), rom.GameCode(), len(raw)

	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.Output))
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(out)
	}
	renderInspectText(r, out)
	return nil
}

func buildInspectOutput(a *sdat.Archive, filter string) *InspectOutput {
	match := func(name string) bool {
		return filter == "" || strings.Contains(name, filter)
	}
	out := &InspectOutput{
		Sequences:    []SequenceInfo{},
		Banks:        []BankInfo{},
		WaveArchives: []WaveArchiveInfo{},
	}

	for i, e := range a.Sequences.Entries() {
		if e.Value == nil || !match(e.Name) {
			continue
		}
		info := SequenceInfo{ID: i, Name: e.Name, BankID: e.Value.BankID, Size: len(e.Value.Data)}
		if e.Value.BankID < a.Banks.Len() {
			info.BankName = a.Banks.At(e.Value.BankID).Name
		}
		out.Sequences = append(out.Sequences, info)
	}

	for i, e := range a.Banks.Entries() {
		if e.Value == nil || !match(e.Name) {
			continue
		}
		var ids []int
		for _, id := range e.Value.WaveArchiveIDs {
			if id != sdat.NoWaveArchive {
				ids = append(ids, id)
			}
		}
		out.Banks = append(out.Banks, BankInfo{ID: i, Name: e.Name, Instruments: len(e.Value.Instruments), WaveArchiveIDs: ids})
	}

	for i, e := range a.WaveArchives.Entries() {
		if e.Value == nil || !match(e.Name) {
			continue
		}
		size := 0
		for _, s := range e.Value.Samples {
			size += len(s)
		}
		out.WaveArchives = append(out.WaveArchives, WaveArchiveInfo{ID: i, Name: e.Name, Samples: len(e.Value.Samples), Size: size})
	}
	return out
}

func renderInspectText(r *output.Renderer, out *InspectOutput) {
	r.Header(1, fmt.Sprintf("%s (%s)", out.Title, out.GameCode))
	r.Println(output.FormatKeyValue("Sound data", humanize.Bytes(uint64(out.SoundDataSize))))
	r.Println("")

	r.Header(2, fmt.Sprintf("Sequences (%d)", len(out.Sequences)))
	t := newTable(r.Writer(), table.Row{"ID", "Name", "Bank", "Size"})
	for _, s := range out.Sequences {
		bank := fmt.Sprintf("%d", s.BankID)
		if s.BankName != "" {
			bank = fmt.Sprintf("%d %s", s.BankID, r.Muted(s.BankName))
		}
		t.AppendRow(table.Row{s.ID, s.Name, bank, humanize.Bytes(uint64(s.Size))})
	}
	t.Render()
	r.Println("")

	r.Header(2, fmt.Sprintf("Banks (%d)", len(out.Banks)))
	t = newTable(r.Writer(), table.Row{"ID", "Name", "Instruments", "Wave archives"})
	for _, b := range out.Banks {
		ids := make([]string, len(b.WaveArchiveIDs))
		for i, id := range b.WaveArchiveIDs {
			ids[i] = fmt.Sprintf("%d", id)
		}
		t.AppendRow(table.Row{b.ID, b.Name, b.Instruments, strings.Join(ids, ", ")})
	}
	t.Render()
	r.Println("")

	r.Header(2, fmt.Sprintf("Wave archives (%d)", len(out.WaveArchives)))
	t = newTable(r.Writer(), table.Row{"ID", "Name", "Samples", "Size"})
	for _, w := range out.WaveArchives {
		t.AppendRow(table.Row{w.ID, w.Name, w.Samples, humanize.Bytes(uint64(w.Size))})
	}
	t.Render()
}

func newTable(w io.Writer, header table.Row) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(header)
	return t
}
