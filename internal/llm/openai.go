package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"

	"github.com/Epistemic-Technology/pdf-regions/internal/logger"
	"github.com/Epistemic-Technology/pdf-regions/models"
)

const describeRegionPrompt = `This image is a region cropped from a page of a PDF document.
Describe its content in one or two sentences suitable for a figure caption.
If the region is a table, name what it tabulates. If it is mostly text, summarize the text.
Reply with the caption only, without quotation marks or a leading label.`

// DescribeFunc produces a caption for a PNG image.
type DescribeFunc func(ctx context.Context, png []byte) (string, error)

// DescribeRegion asks the OpenAI Responses API for a caption of a cropped region image.
func DescribeRegion(ctx context.Context, apiKey string, png []byte) (string, error) {
	if len(png) == 0 {
		return "", errors.New("empty region image")
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	encoded := base64.StdEncoding.EncodeToString(png)
	response, err := client.Responses.New(ctx, responses.ResponseNewParams{
		Model: shared.ChatModelGPT5Mini,
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: responses.ResponseInputParam{
				responses.ResponseInputItemParamOfMessage(
					responses.ResponseInputMessageContentListParam{
						responses.ResponseInputContentUnionParam{
							OfInputImage: &responses.ResponseInputImageParam{
								ImageURL: openai.String("data:image/png;base64," + encoded),
							},
						},
						responses.ResponseInputContentParamOfInputText(describeRegionPrompt),
					},
					"user",
				),
			},
		},
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(response.OutputText()), nil
}

// OpenAIDescriber returns a DescribeFunc backed by DescribeRegion and the
// shared caption rate limit.
func OpenAIDescriber(apiKey string, log logger.Logger) DescribeFunc {
	return newThrottle(log).wrap(func(ctx context.Context, png []byte) (string, error) {
		return DescribeRegion(ctx, apiKey, png)
	})
}

// CaptionCrops reads every exported crop from disk and fills in its caption.
// Crops are described in parallel; the returned slice keeps the input order.
func CaptionCrops(ctx context.Context, crops []models.ExportedCrop, describe DescribeFunc, log logger.Logger) ([]models.ExportedCrop, error) {
	log.Info("Captioning %d exported regions", len(crops))
	captions, err := mapCrops(ctx, crops, defaultMaxWorkers, func(ctx context.Context, crop models.ExportedCrop) (string, error) {
		data, err := os.ReadFile(crop.Path)
		if err != nil {
			return "", fmt.Errorf("failed to read crop %s: %w", crop.Path, err)
		}
		log.Debug("Describing region %d of page %d", crop.Index+1, crop.Page+1)
		caption, err := describe(ctx, data)
		if err != nil {
			log.Error("Failed to describe %s: %v", crop.Path, err)
			return "", err
		}
		return caption, nil
	})
	if err != nil {
		return nil, err
	}

	captioned := make([]models.ExportedCrop, len(crops))
	for i, crop := range crops {
		crop.Caption = captions[i]
		captioned[i] = crop
	}
	return captioned, nil
}
