package inference

// AvgBytesPerToken is the divisor used to estimate token counts from payload
// sizes when a provider reports no usage.
const AvgBytesPerToken = 4

// EstimateTokens estimates the token count of n bytes, rounding up.
func EstimateTokens(n int) int {
	if n <= 0 {
		return 0
	}
	return (n + AvgBytesPerToken - 1) / AvgBytesPerToken
}

// PayloadBytes is the total size of everything sent to the model.
func (r Request) PayloadBytes() int {
	n := len(r.SystemPrompt) + len(r.Prompt) + len(r.Document)
	for _, img := range r.Images {
		n += len(img.Data)
	}
	return n
}

// TokenCounts returns the usage reported by resp, or a deterministic estimate
// from req and resp sizes when none was reported. estimated is true in the
// latter case.
func TokenCounts(req Request, resp *Response) (input, output int, estimated bool) {
	if resp != nil && resp.Usage != nil {
		return resp.Usage.InputTokens, resp.Usage.OutputTokens, false
	}
	text := ""
	if resp != nil {
		text = resp.Text
	}
	return EstimateTokens(req.PayloadBytes()), EstimateTokens(len(text)), true
}
