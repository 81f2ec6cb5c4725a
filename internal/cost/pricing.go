package cost

import "strings"

// ModelPrice is the USD price of one model, per thousand tokens and per image.
type ModelPrice struct {
	InputPer1K  float64 `yaml:"input_per_1k"`
	OutputPer1K float64 `yaml:"output_per_1k"`
	PerImage    float64 `yaml:"per_image"`
}

// Pricing holds the rates used to turn usage into currency amounts.
// Models are matched by exact ID first, then by the longest matching prefix.
type Pricing struct {
	Models            map[string]ModelPrice
	DefaultModel      ModelPrice
	StorageReadPerOp  float64
	StoragePerGB      float64
	TableReadPerDoc   float64
	InvocationPerCall float64
}

// DefaultPricing returns list prices for the models this service dispatches to.
func DefaultPricing() Pricing {
	return Pricing{
		Models: map[string]ModelPrice{
			"gemini-2.5-pro":   {InputPer1K: 0.00125, OutputPer1K: 0.01},
			"gemini-2.5-flash": {InputPer1K: 0.0003, OutputPer1K: 0.0025},
			"gemini-2.0-flash": {InputPer1K: 0.00015, OutputPer1K: 0.0006},
			"gemini-1.5-pro":   {InputPer1K: 0.00125, OutputPer1K: 0.005},
			"gemma-":           {InputPer1K: 0.0001, OutputPer1K: 0.0003},
			"gpt-4o-mini":      {InputPer1K: 0.00015, OutputPer1K: 0.0006},
			"gpt-4o":           {InputPer1K: 0.0025, OutputPer1K: 0.01},
			"gpt-4.1":          {InputPer1K: 0.002, OutputPer1K: 0.008},
		},
		DefaultModel:      ModelPrice{InputPer1K: 0.001, OutputPer1K: 0.004},
		StorageReadPerOp:  0.0000004,
		StoragePerGB:      0.12,
		TableReadPerDoc:   0.0000006,
		InvocationPerCall: 0.0000004,
	}
}

// PriceFor resolves the price of modelID.
func (p Pricing) PriceFor(modelID string) ModelPrice {
	if price, ok := p.Models[modelID]; ok {
		return price
	}
	best := ""
	for prefix := range p.Models {
		if strings.HasPrefix(modelID, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best != "" {
		return p.Models[best]
	}
	return p.DefaultModel
}

// Inference returns the cost of one model call.
func (p Pricing) Inference(modelID string, inputTokens, outputTokens, images int) float64 {
	price := p.PriceFor(modelID)
	return float64(max(inputTokens, 0))/1000*price.InputPer1K +
		float64(max(outputTokens, 0))/1000*price.OutputPer1K +
		float64(max(images, 0))*price.PerImage
}

// StorageRead returns the cost of reading n bytes in one request, counting
// the egress of those bytes.
func (p Pricing) StorageRead(n int) float64 {
	return p.StorageReadPerOp + float64(max(n, 0))/(1<<30)*p.StoragePerGB
}
