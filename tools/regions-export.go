package tools

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/pdf-regions/internal/config"
	"github.com/Epistemic-Technology/pdf-regions/internal/export"
	"github.com/Epistemic-Technology/pdf-regions/internal/llm"
	"github.com/Epistemic-Technology/pdf-regions/internal/logger"
	"github.com/Epistemic-Technology/pdf-regions/internal/operations"
	"github.com/Epistemic-Technology/pdf-regions/internal/registry"
	"github.com/Epistemic-Technology/pdf-regions/internal/storage"
	"github.com/Epistemic-Technology/pdf-regions/models"
)

type RegionsExportQuery struct {
	DocumentID string  `json:"document_id,omitempty"`
	OutputDir  string  `json:"output_dir" jsonschema:"directory the PNG crops are written to, created if missing"`
	DPI        float64 `json:"dpi,omitempty" jsonschema:"raster resolution, defaults to the configured export dpi"`
	Describe   bool    `json:"describe,omitempty" jsonschema:"caption every crop with an OpenAI vision model"`
}

type RegionsExportResponse struct {
	DocumentID string                `json:"document_id"`
	OutputDir  string                `json:"output_dir"`
	Manifest   string                `json:"manifest"`
	Count      int                   `json:"count"`
	Crops      []models.ExportedCrop `json:"crops"`
}

func RegionsExportTool() *mcp.Tool {
	inputschema, err := jsonschema.For[RegionsExportQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "regions-export",
		Description: "Crop every region of an open document out of its page and save it as page_{page}_crop_{x1}_{y1}.png in the output directory, with an index.json manifest. Pages are processed in ascending order; the export stops at the first failure.",
		InputSchema: inputschema,
	}
}

func RegionsExportToolHandler(ctx context.Context, req *mcp.CallToolRequest, query RegionsExportQuery, sessions *registry.Registry, cfg *config.Config, store storage.Store, log logger.Logger) (*mcp.CallToolResult, *RegionsExportResponse, error) {
	log.Info("regions-export tool called")
	if query.OutputDir == "" {
		return nil, nil, errors.New("output_dir is required")
	}

	var describe llm.DescribeFunc
	if query.Describe {
		if cfg.OpenAIAPIKey == "" {
			return nil, nil, errors.New("OPENAI_API_KEY is required to describe regions")
		}
		describe = llm.OpenAIDescriber(cfg.OpenAIAPIKey, log)
	}
	dpi := query.DPI
	if dpi <= 0 {
		dpi = cfg.ExportDPI
	}

	var response *RegionsExportResponse
	err := sessions.With(query.DocumentID, func(doc *operations.Document) error {
		crops, err := operations.ExportRegions(ctx, doc, query.OutputDir, dpi, describe, store, log)
		if err != nil {
			log.Error("Export stopped after %d crops", len(crops))
			return err
		}
		if crops == nil {
			crops = []models.ExportedCrop{}
		}
		response = &RegionsExportResponse{
			DocumentID: doc.ID,
			OutputDir:  query.OutputDir,
			Manifest:   filepath.Join(query.OutputDir, export.ManifestName),
			Count:      len(crops),
			Crops:      crops,
		}
		return nil
	})
	if err != nil {
		log.Error("regions-export tool failed: %v", err)
		return nil, nil, err
	}
	return nil, response, nil
}
