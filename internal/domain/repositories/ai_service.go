package repositories

import (
	"context"

	"tryon-storefront/internal/domain/entities"
	"tryon-storefront/internal/domain/valueobjects"
)

// 画像解析サービス (POST /api/analyze-user-image)
type AnalysisService interface {
	Analyze(ctx context.Context, image *valueobjects.UploadedImage) (*entities.AnalysisMetadata, error)
}

// ヘッドスワップサービス (POST /api/swap-head)
type SwapService interface {
	Swap(ctx context.Context, image *valueobjects.UploadedImage, key valueobjects.ReferenceImageKey) (*entities.SwapOutcome, error)
}

// ReferenceCatalog resolves a reference key to the URL the page uses for
// the reveal placeholder.
type ReferenceCatalog interface {
	Resolve(ctx context.Context, key valueobjects.ReferenceImageKey) (string, error)
}
