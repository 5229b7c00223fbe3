// Package llm maps persona variants to dialogue-model settings.
package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/BrianMwas/vocare/agent/contract"
	sessionx "github.com/BrianMwas/vocare/agent/session"
	openaix "github.com/BrianMwas/vocare/pkg/openaix"
)

// Config carries the default dialogue model plus per-persona overrides and
// the speech tuning the transport glue needs.
type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://api.openai.com/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" default:"gpt-4o-mini"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"200"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.7"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`

	ClassifierModel         string  `envconfig:"CLASSIFIER_MODEL" split_words:"true"`
	OrderModel              string  `envconfig:"ORDER_MODEL" split_words:"true"`
	ReservationModel        string  `envconfig:"RESERVATION_MODEL" split_words:"true"`
	ConfirmationModel       string  `envconfig:"CONFIRMATION_MODEL" split_words:"true"`
	ClassifierTemperature   float32 `envconfig:"CLASSIFIER_TEMPERATURE" split_words:"true" default:"-1"`
	OrderTemperature        float32 `envconfig:"ORDER_TEMPERATURE" split_words:"true" default:"-1"`
	ReservationTemperature  float32 `envconfig:"RESERVATION_TEMPERATURE" split_words:"true" default:"-1"`
	ConfirmationTemperature float32 `envconfig:"CONFIRMATION_TEMPERATURE" split_words:"true" default:"-1"`

	// Voice and recognition tuning handed to the speech glue.
	Voice            string   `envconfig:"VOICE" split_words:"true" default:"nova"`
	RecognitionHints []string `envconfig:"RECOGNITION_HINTS" split_words:"true" default:"pizza,pasta,salad,appetizer,dessert,order,reservation"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: openai api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

// OpenAIFor resolves model settings for one persona, falling back to the
// defaults where no override is set.
func (c Config) OpenAIFor(persona string) openaix.Config {
	modelName := strings.TrimSpace(c.Model)
	temp := c.Temperature

	switch persona {
	case sessionx.PersonaIntentClassifier:
		if v := strings.TrimSpace(c.ClassifierModel); v != "" {
			modelName = v
		}
		if c.ClassifierTemperature >= 0 {
			temp = c.ClassifierTemperature
		}
	case sessionx.PersonaOrder:
		if v := strings.TrimSpace(c.OrderModel); v != "" {
			modelName = v
		}
		if c.OrderTemperature >= 0 {
			temp = c.OrderTemperature
		}
	case sessionx.PersonaReservation:
		if v := strings.TrimSpace(c.ReservationModel); v != "" {
			modelName = v
		}
		if c.ReservationTemperature >= 0 {
			temp = c.ReservationTemperature
		}
	case sessionx.PersonaConfirmation:
		if v := strings.TrimSpace(c.ConfirmationModel); v != "" {
			modelName = v
		}
		if c.ConfirmationTemperature >= 0 {
			temp = c.ConfirmationTemperature
		}
	}

	maxCompletionToken := c.MaxCompletionToken
	return openaix.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
	}
}
