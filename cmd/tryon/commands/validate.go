package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	domainservices "tryon-storefront/internal/domain/services"
	"tryon-storefront/internal/domain/valueobjects"
)

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <photo>",
		Short: "Check a photo against the upload rules without sending it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			validator := domainservices.NewUploadValidator(cfg.Upload.MaxBytes)
			image, err := loadImage(validator, args[0])
			if err != nil {
				return err
			}

			preview := <-validator.DecodePreview(cmd.Context(), image)
			fmt.Fprintln(cmd.OutOrStdout(), describeImage(image, preview.Preview))
			return nil
		},
	}
}

// loadImage reads path into a candidate and validates it. Files at or
// over the size limit are not read; the validator rejects them from the
// declared size alone.
func loadImage(validator *domainservices.UploadValidator, path string) (*valueobjects.UploadedImage, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	candidate := domainservices.Candidate{
		FileName: filepath.Base(path),
		Size:     info.Size(),
	}
	if info.Size() < validator.MaxBytes() {
		candidate.Data, err = os.ReadFile(path)
		if err != nil {
			return nil, err
		}
	}

	image, err := validator.Validate(candidate)
	if err != nil {
		return nil, err
	}
	return image, nil
}

func describeImage(image *valueobjects.UploadedImage, preview *valueobjects.Preview) string {
	desc := fmt.Sprintf("%s (%s, %s)", image.FileName(), image.MimeType(), humanize.IBytes(uint64(image.SizeBytes())))
	if preview != nil {
		desc += fmt.Sprintf(" %dx%d", preview.Width, preview.Height)
	}
	return desc
}
