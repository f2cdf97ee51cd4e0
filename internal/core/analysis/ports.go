// Package analysis はリポジトリ解析パイプラインを提供します
package analysis

import (
	"context"

	"github.com/jinford/dev-onboard/internal/core/roadmap"
)

// AIService は生成AIによる合成処理を抽象化します
type AIService interface {
	// ExtractProjectPurpose はREADMEからプロジェクトの目的を抽出します
	// 利用できない応答は apperr.ErrUpstreamAI として返す必要があります
	ExtractProjectPurpose(ctx context.Context, in PurposeInput) (Purpose, error)

	// GenerateRoadmap は解析結果からロードマップを生成します
	GenerateRoadmap(ctx context.Context, bundle Bundle) (roadmap.RawRoadmap, error)
}
