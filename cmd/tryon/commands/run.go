package commands

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tryon-storefront/cmd/tryon/ui"
	"tryon-storefront/internal/application/usecases"
	"tryon-storefront/internal/domain/entities"
	"tryon-storefront/internal/domain/repositories"
	"tryon-storefront/internal/domain/valueobjects"
)

var errCancelled = errors.New("cancelled")

func runCmd() *cobra.Command {
	var (
		assumeYes bool
		plain     bool
		outPath   string
	)

	cmd := &cobra.Command{
		Use:   "run <photo>",
		Short: "Upload a photo, run the try-on and optionally save the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			styles := ui.DefaultStyles()

			deps, err := newDeps(cfg, logger)
			if err != nil {
				return err
			}
			defer deps.Close()

			image, err := loadImage(deps.validator, args[0])
			if err != nil {
				return err
			}
			preview := <-deps.validator.DecodePreview(ctx, image)
			fmt.Fprintln(out, styles.Label.Render("Photo: ")+describeImage(image, preview.Preview))

			orchestrator := deps.newOrchestrator(cfg, logger)
			defer orchestrator.Close()

			if err := orchestrator.Upload(image); err != nil {
				return err
			}

			if !assumeYes {
				ok, err := confirmStart()
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(out, styles.Muted.Render("Cancelled."))
					return nil
				}
			}

			if err := orchestrator.Confirm(ctx); err != nil {
				return err
			}
			// a signal cancels the run the same way the reset button does
			go func() {
				<-ctx.Done()
				orchestrator.Reset()
			}()

			if plain || !isTerminal(out) {
				followPlain(ctx, out, orchestrator)
			} else {
				updates, unsubscribe := orchestrator.Subscribe()
				_, err := ui.RunReveal(ctx, updates, orchestrator.Reset)
				unsubscribe()
				if err != nil && !errors.Is(err, context.Canceled) {
					logger.Warn("progress view failed", zap.Error(err))
				}
			}

			snap, err := orchestrator.Wait(context.WithoutCancel(ctx))
			switch {
			case errors.Is(err, usecases.ErrSessionReset):
				fmt.Fprintln(out, styles.Muted.Render("Cancelled."))
				return errCancelled
			case err != nil:
				fmt.Fprintln(out, styles.Error.Render(userMessage(snap, err)))
				return err
			}

			fmt.Fprintln(out, styles.Success.Render("Try-on complete."))
			if snap.Result.Warning != "" {
				fmt.Fprintln(out, styles.Warning.Render("Warning: "+snap.Result.Warning))
			}
			if outPath == "" {
				return nil
			}

			data, err := fetchOutput(ctx, deps.pool, deps.client.BaseURL(), snap.Result.OutputImage)
			if err != nil {
				return fmt.Errorf("failed to fetch output image: %w", err)
			}
			if err := os.WriteFile(outPath, data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(out, "Saved %s\n", outPath)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "start without asking")
	cmd.Flags().BoolVar(&plain, "plain", false, "print progress lines instead of the interactive view")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write the generated image to this file")
	return cmd
}

func confirmStart() (bool, error) {
	ok := true
	prompt := &survey.Confirm{
		Message: "Start the try-on with this photo?",
		Default: true,
	}
	if err := survey.AskOne(prompt, &ok); err != nil {
		if errors.Is(err, terminal.InterruptErr) {
			return false, errCancelled
		}
		return false, err
	}
	return ok, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

// followPlain prints one line per phase change and per tenth of progress.
func followPlain(ctx context.Context, out io.Writer, orchestrator *usecases.TryOnOrchestrator) {
	updates, unsubscribe := orchestrator.Subscribe()
	defer unsubscribe()

	var (
		lastState valueobjects.SessionState
		lastTenth = -1
		sawBusy   bool
	)
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			tenth := int(snap.Progress * 10)
			if snap.State != lastState {
				fmt.Fprintf(out, "%s\n", snap.State)
				lastState, lastTenth = snap.State, -1
			}
			if snap.State.IsBusy() && tenth != lastTenth && snap.Progress > 0 {
				fmt.Fprintf(out, "  %3.0f%%\n", snap.Progress*100)
				lastTenth = tenth
			}
			if snap.State.IsBusy() {
				sawBusy = true
				continue
			}
			if snap.State.IsTerminal() || sawBusy {
				return
			}
		}
	}
}

func userMessage(snap entities.SessionSnapshot, err error) string {
	if snap.Error != nil {
		return snap.Error.Message
	}
	return err.Error()
}

// fetchOutput returns the bytes of a swap result, which is either an
// inline data URI or a URL relative to the API.
func fetchOutput(ctx context.Context, pool repositories.HTTPClientPool, baseURL, ref string) ([]byte, error) {
	if rest, ok := strings.CutPrefix(ref, "data:"); ok {
		meta, payload, found := strings.Cut(rest, ",")
		if !found || !strings.HasSuffix(meta, ";base64") {
			return nil, fmt.Errorf("unsupported data URI")
		}
		return base64.StdEncoding.DecodeString(payload)
	}

	base, err := url.Parse(baseURL + "/")
	if err != nil {
		return nil, err
	}
	target, err := base.Parse(ref)
	if err != nil {
		return nil, err
	}

	client, err := pool.GetHTTPClient(ctx)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: %s", target, resp.Status)
	}
	return io.ReadAll(resp.Body)
}
