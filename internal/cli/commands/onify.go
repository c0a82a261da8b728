package commands

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Terr/phoenix-wright-2-onifier/internal/cli/config"
	"github.com/Terr/phoenix-wright-2-onifier/internal/cli/output"
	"github.com/Terr/phoenix-wright-2-onifier/internal/onify"
)

// RunOnify copies the configured tracks from the first ROM into the second
// and writes the result to the third path. It backs the root command.
func RunOnify(cmd *cobra.Command, args []string) error {
	cfg := config.GetConfig(cmd.Context())
	logger := config.GetLogger(cmd.Context())

	res, err := onify.Run(onify.Options{
		SourcePath:    args[0],
		DestPath:      args[1],
		OutputPath:    args[2],
		SoundDataPath: cfg.SdatPath,
		Plan:          cfg.Plan(),
	}, logger)
	if err != nil {
		return err
	}

	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.Output))
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(res)
	}

	r.Success(fmt.Sprintf("Take that! Wrote modified ROM to %s", res.OutputPath))
	if n := res.Report.Appended(); n > 0 {
		r.Warn(fmt.Sprintf("%d track(s) were appended as new sequences; the game only plays sequences it already references", n))
	}
	if cfg.Verbose {
		sty := r.Styles()
		for _, t := range res.Report.Tracks {
			verb := "replaced"
			if !t.Sequence.Replaced {
				verb = "appended"
			}
			r.Printf("  %s %s\n", sty.Info.Render(t.Pair.String()),
				r.Muted(fmt.Sprintf("(%s, %d notes remapped)", verb, t.RemappedNotes)))
		}
		r.Println(r.Muted(fmt.Sprintf("  %d samples imported, sound data %s, ROM %s",
			res.Report.ImportedSamples,
			humanize.Bytes(uint64(res.SoundDataSize)),
			humanize.Bytes(uint64(res.BytesWritten)))))
	}
	return nil
}
