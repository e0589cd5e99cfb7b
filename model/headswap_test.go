package model

import (
	"encoding/json"
	"testing"
)

func TestAnalyzeResponse_Unmarshal(t *testing.T) {
	body := `{
		"success": true,
		"metadata": {"body_type": "athletic", "skin_color": "medium", "gender": "male"},
		"message": "Image analyzed successfully"
	}`

	var resp AnalyzeResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}

	if resp.Success == nil || !*resp.Success {
		t.Errorf("Expected success=true")
	}
	if resp.Metadata == nil {
		t.Fatal("Expected metadata")
	}
	if resp.Metadata.BodyType != "athletic" || resp.Metadata.SkinColor != "medium" {
		t.Errorf("Unexpected metadata: %+v", resp.Metadata)
	}
}

func TestAnalyzeResponse_MissingMetadata(t *testing.T) {
	var resp AnalyzeResponse
	if err := json.Unmarshal([]byte(`{"success": false, "error": "No face detected"}`), &resp); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if resp.Metadata != nil {
		t.Errorf("Expected nil metadata")
	}
	if resp.Error != "No face detected" {
		t.Errorf("Expected error message, got %q", resp.Error)
	}
}

func TestSwapResponse_Unmarshal(t *testing.T) {
	tests := []struct {
		name            string
		body            string
		wantOutput      string
		wantPregen      string
		wantWarning     string
		wantAnalysisNil bool
	}{
		{
			name:            "generated output",
			body:            `{"output_image": "data:image/png;base64,iVBORw0KGgo="}`,
			wantOutput:      "data:image/png;base64,iVBORw0KGgo=",
			wantAnalysisNil: true,
		},
		{
			name:        "pregenerated fallback with warning",
			body:        `{"pregenerated_image_url": "/pregenerated/athletic_olive.png", "warning": "Using pregenerated image", "analysis": {"body_type": "athletic", "skin_color": "olive"}}`,
			wantPregen:  "/pregenerated/athletic_olive.png",
			wantWarning: "Using pregenerated image",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp SwapResponse
			if err := json.Unmarshal([]byte(tt.body), &resp); err != nil {
				t.Fatalf("Failed to unmarshal: %v", err)
			}
			if resp.OutputImage != tt.wantOutput {
				t.Errorf("OutputImage = %q, want %q", resp.OutputImage, tt.wantOutput)
			}
			if resp.PregeneratedImageURL != tt.wantPregen {
				t.Errorf("PregeneratedImageURL = %q, want %q", resp.PregeneratedImageURL, tt.wantPregen)
			}
			if resp.Warning != tt.wantWarning {
				t.Errorf("Warning = %q, want %q", resp.Warning, tt.wantWarning)
			}
			if (resp.Analysis == nil) != tt.wantAnalysisNil {
				t.Errorf("Analysis = %+v", resp.Analysis)
			}
		})
	}
}
