package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"marinova/internal/llm"
)

type stubWeather struct {
	calls int
	doc   json.RawMessage
	err   error
}

func (s *stubWeather) Fetch(_ context.Context, _, _ float64) (json.RawMessage, error) {
	s.calls++
	return s.doc, s.err
}

func newAIService(env *testEnv, client llm.LLMClient, provider *stubWeather) *AIService {
	return NewAIService(zap.NewNop(), env.usage, client, provider)
}

func TestAIService_ChargesBeforeGenerating(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.registerVerified(t, "olga@gmail.com")
	mock := &llm.MockClient{Response: "  Calm seas expected. "}
	svc := newAIService(env, mock, &stubWeather{})

	res, err := svc.Insights(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Calm seas expected.", res.Text)
	assert.Equal(t, 2, res.Usage.UsageCredits)
	assert.Equal(t, 1, mock.Calls)
	assert.Contains(t, mock.LastPrompt, "Month: ")
}

func TestAIService_RestrictedFeatureSkipsProvider(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.registerVerified(t, "pia@gmail.com")
	mock := &llm.MockClient{Response: "hello"}
	svc := newAIService(env, mock, &stubWeather{})

	_, err := svc.Chat(ctx, user.ID, []ChatMessage{{Role: "user", Content: "Is it safe to sail?"}}, nil)
	assert.ErrorIs(t, err, ErrSubscriptionRequired)
	_, err = svc.Report(ctx, user.ID, "Coral bleaching")
	assert.ErrorIs(t, err, ErrSubscriptionRequired)
	assert.Equal(t, 0, mock.Calls)

	_, err = env.subs.UpdateSubscription(ctx, user.ID, "retail_india")
	require.NoError(t, err)
	res, err := svc.Chat(ctx, user.ID, []ChatMessage{{Role: "user", Content: "Is it safe to sail?"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", res.Text)
	assert.Contains(t, mock.LastPrompt, "user: Is it safe to sail?")
}

func TestAIService_InvalidInputIsNotCharged(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.registerVerified(t, "rosa@gmail.com")
	svc := newAIService(env, &llm.MockClient{Response: "x"}, &stubWeather{})

	var verr *ValidationError
	_, err := svc.AnalyzeWeather(ctx, user.ID, WeatherBrief{LocationName: "", Lat: 10, Lon: 10})
	assert.True(t, errors.As(err, &verr))
	_, err = svc.AnalyzeWeather(ctx, user.ID, WeatherBrief{LocationName: "Kochi", Lat: 120, Lon: 10})
	assert.True(t, errors.As(err, &verr))
	_, err = svc.AnalyzeWeather(ctx, user.ID, WeatherBrief{LocationName: "Kochi", Lat: 9.9, Lon: 76.2, Weather: json.RawMessage("{broken")})
	assert.True(t, errors.As(err, &verr))
	_, err = svc.Chat(ctx, user.ID, nil, nil)
	assert.True(t, errors.As(err, &verr))
	_, err = svc.Report(ctx, user.ID, "  ")
	assert.True(t, errors.As(err, &verr))
	_, err = svc.Image(ctx, user.ID, " ")
	assert.True(t, errors.As(err, &verr))
	_, err = svc.Chat(ctx, user.ID, []ChatMessage{{Content: "look"}}, []string{"ftp://host/x.png"})
	assert.True(t, errors.As(err, &verr))

	view, err := env.usage.Credits(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, view.UsageCredits)
}

func TestAIService_AnalyzeWeatherFetchesWhenMissing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.registerVerified(t, "sol@gmail.com")
	mock := &llm.MockClient{Response: "Moderate swell."}
	provider := &stubWeather{doc: json.RawMessage(`{"current":{"wind_speed_10m":12}}`)}
	svc := newAIService(env, mock, provider)

	res, err := svc.AnalyzeWeather(ctx, user.ID, WeatherBrief{LocationName: "Kochi", Lat: 9.93, Lon: 76.26})
	require.NoError(t, err)
	assert.Equal(t, "Moderate swell.", res.Text)
	assert.Equal(t, 1, provider.calls)
	assert.Contains(t, mock.LastPrompt, "Kochi")
	assert.Contains(t, mock.LastPrompt, "wind_speed_10m")

	_, err = svc.AnalyzeWeather(ctx, user.ID, WeatherBrief{
		LocationName: "Kochi", Lat: 9.93, Lon: 76.26,
		Weather: json.RawMessage(`{"current":{}}`),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, provider.calls)
}

func TestAIService_ProviderFailureKeepsCharge(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.registerVerified(t, "tom@gmail.com")
	svc := newAIService(env, &llm.MockClient{Err: errors.New("upstream 503")}, &stubWeather{})

	res, err := svc.Insights(ctx, user.ID)
	assert.ErrorIs(t, err, ErrProviderFailure)
	assert.Equal(t, 2, res.Usage.UsageCredits)

	view, err := env.usage.Credits(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, view.UsageCredits)
}

func TestAIService_ChatForwardsImages(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.registerVerified(t, "uma@gmail.com")
	_, err := env.subs.UpdateSubscription(ctx, user.ID, "international")
	require.NoError(t, err)
	mock := &llm.MockClient{Response: "A trawler."}
	svc := newAIService(env, mock, &stubWeather{})

	res, err := svc.Chat(ctx, user.ID, []ChatMessage{{Role: "user", Content: "What boat is this?"}},
		[]string{" https://img.example/boat.jpg ", "", "data:image/png;base64,AAAA"})
	require.NoError(t, err)
	assert.Equal(t, "A trawler.", res.Text)
	assert.Equal(t, []string{"https://img.example/boat.jpg", "data:image/png;base64,AAAA"}, mock.LastImages)

	_, err = svc.Chat(ctx, user.ID, []ChatMessage{{Content: "too many"}}, []string{
		"https://a/1", "https://a/2", "https://a/3", "https://a/4", "https://a/5",
	})
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
	assert.Equal(t, 1, mock.Calls)
}

func TestAIService_ImageRequiresPaidPlan(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.registerVerified(t, "vera@gmail.com")
	mock := &llm.MockClient{ImageURL: "https://cdn.example/reef.png"}
	svc := newAIService(env, mock, &stubWeather{})

	_, err := svc.Image(ctx, user.ID, "coral reef at dawn")
	assert.ErrorIs(t, err, ErrSubscriptionRequired)
	assert.Equal(t, 0, mock.Calls)

	_, err = env.subs.UpdateSubscription(ctx, user.ID, "enterprise")
	require.NoError(t, err)
	res, err := svc.Image(ctx, user.ID, "  coral reef at dawn ")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/reef.png", res.Text)
	assert.Equal(t, "coral reef at dawn", mock.LastPrompt)
	assert.Equal(t, 1, mock.Calls)

	mock.ImageURL = ""
	_, err = svc.Image(ctx, user.ID, "empty result")
	assert.ErrorIs(t, err, ErrProviderFailure)
}
