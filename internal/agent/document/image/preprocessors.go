package image

import (
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
)

// ImagePreprocessor transforms a bitmap before it is handed to OCR
type ImagePreprocessor interface {
	Name() string
	Process(img image.Image) (image.Image, error)
}

// GrayscaleProcessor drops color information
type GrayscaleProcessor struct{}

func NewGrayscaleProcessor() *GrayscaleProcessor {
	return &GrayscaleProcessor{}
}

func (p *GrayscaleProcessor) Name() string { return "grayscale" }

func (p *GrayscaleProcessor) Process(img image.Image) (image.Image, error) {
	return imaging.Grayscale(img), nil
}

// ContrastProcessor adjusts contrast by a percentage in [-100, 100]
type ContrastProcessor struct {
	amount float64
}

func NewContrastProcessor(amount float64) *ContrastProcessor {
	return &ContrastProcessor{amount: amount}
}

func (p *ContrastProcessor) Name() string { return "contrast" }

func (p *ContrastProcessor) Process(img image.Image) (image.Image, error) {
	return imaging.AdjustContrast(img, p.amount), nil
}

// SharpenProcessor applies an unsharp mask with the given sigma
type SharpenProcessor struct {
	strength float64
}

func NewSharpenProcessor(strength float64) *SharpenProcessor {
	return &SharpenProcessor{strength: strength}
}

func (p *SharpenProcessor) Name() string { return "sharpen" }

func (p *SharpenProcessor) Process(img image.Image) (image.Image, error) {
	return imaging.Sharpen(img, p.strength), nil
}

// DenoiseProcessor smooths the bitmap with a gaussian blur
type DenoiseProcessor struct {
	strength float64
}

func NewDenoiseProcessor(strength float64) *DenoiseProcessor {
	return &DenoiseProcessor{strength: strength}
}

func (p *DenoiseProcessor) Name() string { return "denoise" }

func (p *DenoiseProcessor) Process(img image.Image) (image.Image, error) {
	return imaging.Blur(img, p.strength), nil
}

// ParsePreprocessors builds a chain from configuration names, in order
func ParsePreprocessors(names []string) ([]ImagePreprocessor, error) {
	chain := make([]ImagePreprocessor, 0, len(names))
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "grayscale":
			chain = append(chain, NewGrayscaleProcessor())
		case "contrast":
			chain = append(chain, NewContrastProcessor(20))
		case "sharpen":
			chain = append(chain, NewSharpenProcessor(0.5))
		case "denoise":
			chain = append(chain, NewDenoiseProcessor(0.5))
		default:
			return nil, fmt.Errorf("unknown preprocessor: %s", name)
		}
	}
	return chain, nil
}

// ApplyPreprocessing runs img through every preprocessor in the chain
func ApplyPreprocessing(img image.Image, chain []ImagePreprocessor) (image.Image, error) {
	if img == nil {
		return nil, fmt.Errorf("input image is nil")
	}

	result := img
	for _, processor := range chain {
		var err error
		result, err = processor.Process(result)
		if err != nil {
			return nil, fmt.Errorf("preprocessor %s failed: %w", processor.Name(), err)
		}
		if result == nil {
			return nil, fmt.Errorf("preprocessor %s returned nil image", processor.Name())
		}
	}
	return result, nil
}
