package llm

import "context"

// MockClient permite tests sin llamar a un LLM real.
type MockClient struct {
	Response   string
	ImageURL   string
	Err        error
	Calls      int
	LastSystem string
	LastPrompt string
	LastImages []string
}

func (m *MockClient) Generate(ctx context.Context, system, prompt string) (string, error) {
	return m.GenerateWithImages(ctx, system, prompt, nil)
}

func (m *MockClient) GenerateWithImages(_ context.Context, system, prompt string, imageURLs []string) (string, error) {
	m.Calls++
	m.LastSystem = system
	m.LastPrompt = prompt
	m.LastImages = imageURLs
	return m.Response, m.Err
}

func (m *MockClient) GenerateImage(_ context.Context, prompt string) (string, error) {
	m.Calls++
	m.LastPrompt = prompt
	return m.ImageURL, m.Err
}
