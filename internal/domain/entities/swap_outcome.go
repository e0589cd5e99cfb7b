package entities

import "fmt"

// SwapOutcome is the terminal data of a try-on session.
type SwapOutcome struct {
	outputImageRef       string
	pregeneratedImageURL string
	warning              string
}

func NewSwapOutcome(outputImageRef, pregeneratedImageURL, warning string) (*SwapOutcome, error) {
	if outputImageRef == "" {
		outputImageRef = pregeneratedImageURL
	}
	if outputImageRef == "" {
		return nil, fmt.Errorf("swap outcome has no output image")
	}

	return &SwapOutcome{
		outputImageRef:       outputImageRef,
		pregeneratedImageURL: pregeneratedImageURL,
		warning:              warning,
	}, nil
}

// OutputImageRef is either a data URI or a URL.
func (o *SwapOutcome) OutputImageRef() string {
	return o.outputImageRef
}

func (o *SwapOutcome) PregeneratedImageURL() string {
	return o.pregeneratedImageURL
}

func (o *SwapOutcome) Warning() string {
	return o.warning
}

func (o *SwapOutcome) HasWarning() bool {
	return o.warning != ""
}
