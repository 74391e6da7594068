package progress

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"

	types "github.com/yungbote/neurobridge-progress/internal/domain"
	domainprogress "github.com/yungbote/neurobridge-progress/internal/domain/progress"
	"github.com/yungbote/neurobridge-progress/internal/platform/dbctx"
)

//go:embed achievements.yaml
var defaultCatalogYAML []byte

type catalogFile struct {
	Achievements []catalogEntry `yaml:"achievements"`
}

type catalogEntry struct {
	Code        string         `yaml:"code"`
	Title       string         `yaml:"title"`
	Description string         `yaml:"description"`
	Predicate   string         `yaml:"predicate"`
	Threshold   int            `yaml:"threshold"`
	Metadata    map[string]any `yaml:"metadata"`
}

// ParseCatalog decodes and validates an achievement catalog document.
func ParseCatalog(raw []byte) ([]*types.AchievementDefinition, error) {
	var doc catalogFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse achievement catalog: %w", err)
	}
	seen := map[string]bool{}
	out := make([]*types.AchievementDefinition, 0, len(doc.Achievements))
	for i, e := range doc.Achievements {
		code := strings.TrimSpace(e.Code)
		switch {
		case code == "":
			return nil, fmt.Errorf("achievement %d: code is required", i)
		case seen[code]:
			return nil, fmt.Errorf("achievement %q: duplicate code", code)
		case !domainprogress.KnownPredicate(e.Predicate):
			return nil, fmt.Errorf("achievement %q: unknown predicate %q", code, e.Predicate)
		case e.Threshold < 1:
			return nil, fmt.Errorf("achievement %q: threshold must be at least 1", code)
		}
		seen[code] = true
		def := &types.AchievementDefinition{
			Code:        code,
			Title:       strings.TrimSpace(e.Title),
			Description: strings.TrimSpace(e.Description),
			Predicate:   strings.TrimSpace(e.Predicate),
			Threshold:   e.Threshold,
		}
		if def.Title == "" {
			def.Title = code
		}
		if len(e.Metadata) > 0 {
			b, err := json.Marshal(e.Metadata)
			if err != nil {
				return nil, fmt.Errorf("achievement %q: metadata: %w", code, err)
			}
			def.Metadata = datatypes.JSON(b)
		}
		out = append(out, def)
	}
	return out, nil
}

// DefaultCatalog is the embedded achievement catalog.
func DefaultCatalog() ([]*types.AchievementDefinition, error) {
	return ParseCatalog(defaultCatalogYAML)
}

// SyncCatalog upserts defs by code. Nil defs means the embedded catalog.
func (u Usecases) SyncCatalog(ctx context.Context, defs []*types.AchievementDefinition) error {
	if defs == nil {
		var err error
		if defs, err = DefaultCatalog(); err != nil {
			return err
		}
	}
	if err := u.deps.AchievementDefinitions.UpsertByCode(dbctx.Background(ctx), defs); err != nil {
		return fmt.Errorf("sync achievement catalog: %w", err)
	}
	u.deps.Log.Info("achievement catalog synced", "definitions", len(defs))
	return nil
}
