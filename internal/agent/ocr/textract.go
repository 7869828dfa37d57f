package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
	"github.com/disintegration/imaging"

	"github.com/feichai0017/content-analyzer/config"
	"github.com/feichai0017/content-analyzer/pkg/logger"
)

// TextractAPI is the subset of the Textract client used here
type TextractAPI interface {
	DetectDocumentText(ctx context.Context, params *textract.DetectDocumentTextInput, optFns ...func(*textract.Options)) (*textract.DetectDocumentTextOutput, error)
}

// Textract sends each bitmap to AWS Textract. The language hint is ignored
// because Textract detects it.
type Textract struct {
	client TextractAPI
	logger logger.Logger
}

func NewTextract(ctx context.Context, cfg config.TextractConfig, log logger.Logger) (*Textract, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Configured() {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config: %w", err)
	}
	return NewTextractWithClient(textract.NewFromConfig(awsCfg), log), nil
}

func NewTextractWithClient(client TextractAPI, log logger.Logger) *Textract {
	return &Textract{client: client, logger: log.Named("textract")}
}

func (t *Textract) Name() string {
	return "textract"
}

func (t *Textract) Recognize(ctx context.Context, img image.Image, language string) (string, error) {
	if img == nil {
		return "", fmt.Errorf("input image is nil")
	}

	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, img, imaging.PNG); err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}

	out, err := t.client.DetectDocumentText(ctx, &textract.DetectDocumentTextInput{
		Document: &types.Document{Bytes: buf.Bytes()},
	})
	if err != nil {
		return "", fmt.Errorf("failed to detect document text: %w", err)
	}

	var lines []string
	for _, block := range out.Blocks {
		if block.BlockType == types.BlockTypeLine && block.Text != nil {
			lines = append(lines, aws.ToString(block.Text))
		}
	}

	t.logger.Debug("Detected document text",
		logger.Int("blocks", len(out.Blocks)),
		logger.Int("lines", len(lines)),
	)
	return strings.Join(lines, "\n"), nil
}
