package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// TwilioSender sends SMS and WhatsApp messages through the Twilio API. The
// same account number serves both channels; WhatsApp recipients and the
// sender are addressed with the "whatsapp:" prefix.
type TwilioSender struct {
	client *twilio.RestClient
	from   string // E.164 number, e.g. "+14155550100"
}

// NewTwilioSender creates a sender authenticated with the account SID and
// auth token.
func NewTwilioSender(accountSID, authToken, from string) (*TwilioSender, error) {
	if accountSID == "" || authToken == "" {
		return nil, fmt.Errorf("twilio account SID and auth token must be provided")
	}
	if from == "" {
		return nil, fmt.Errorf("twilio from number must be provided")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})

	return &TwilioSender{client: client, from: from}, nil
}

func (s *TwilioSender) send(to, from, body string) (string, error) {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(from)
	params.SetBody(body)

	resp, err := s.client.Api.CreateMessage(params)
	if err != nil {
		return "", fmt.Errorf("twilio message to %s: %w", to, err)
	}
	if resp.Sid == nil {
		return "", fmt.Errorf("twilio message to %s: response missing sid", to)
	}
	return *resp.Sid, nil
}

func (s *TwilioSender) SendSMS(_ context.Context, to, body string) (string, error) {
	return s.send(to, s.from, body)
}

func (s *TwilioSender) SendWhatsApp(_ context.Context, to, body string) (string, error) {
	if !strings.HasPrefix(to, "whatsapp:") {
		to = "whatsapp:" + to
	}
	return s.send(to, "whatsapp:"+s.from, body)
}
