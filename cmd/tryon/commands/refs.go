package commands

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"tryon-storefront/cmd/tryon/ui"
	infrarepos "tryon-storefront/internal/infrastructure/repositories"
)

func refsCmd() *cobra.Command {
	refs := &cobra.Command{
		Use:   "refs",
		Short: "Inspect the reference image catalog",
	}
	refs.AddCommand(refsCheckCmd())
	return refs
}

func refsCheckCmd() *cobra.Command {
	var garment string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify a reference image exists for every body type and skin color",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if garment == "" {
				garment = cfg.Reference.Garment
			}
			catalog := infrarepos.NewFileReferenceCatalog(cfg.Reference.ImagesDir, cfg.Reference.URLPrefix)
			entries, err := catalog.Audit(cmd.Context(), garment)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprint(out, renderAudit(entries))

			var missing int
			for _, e := range entries {
				if !e.OK() {
					missing++
				}
			}
			if missing > 0 {
				return fmt.Errorf("%d of %d reference images are missing or unreadable", missing, len(entries))
			}
			fmt.Fprintf(out, "all %d reference images ok\n", len(entries))
			return nil
		},
	}

	cmd.Flags().StringVar(&garment, "garment", "", "garment family (default from config)")
	return cmd
}

func renderAudit(entries []infrarepos.AuditEntry) string {
	styles := ui.DefaultStyles()
	keyCol := lipgloss.NewStyle().Width(36)
	sizeCol := lipgloss.NewStyle().Width(12)

	var sb strings.Builder
	sb.WriteString(styles.Label.Render(keyCol.Render("REFERENCE")+sizeCol.Render("SIZE")+"IMAGE") + "\n")
	for _, e := range entries {
		row := keyCol.Render(e.Key.Path())
		if e.OK() {
			row += sizeCol.Render(humanize.IBytes(uint64(e.SizeBytes)))
			row += styles.Success.Render(fmt.Sprintf("%s %dx%d", e.Format, e.Width, e.Height))
		} else {
			row += sizeCol.Render("-")
			row += styles.Error.Render(e.Err.Error())
		}
		sb.WriteString(row + "\n")
	}
	return sb.String()
}
