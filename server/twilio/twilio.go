package twilio

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/Daskott/safepoint/server/logger"
	"github.com/Daskott/safepoint/shared"
	"github.com/google/uuid"
	"github.com/twilio/twilio-go"
	twilioUtil "github.com/twilio/twilio-go/client"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

const STATUS_CALLBACK_PATH = "/api/v1/webhooks/sms/status"

var logg = logger.NewLogger()

func SetLogger(l *zap.SugaredLogger) {
	logg = l
}

type ClientWrapper struct {
	client           *twilio.RestClient
	config           shared.TwilioConfig
	requestValidator twilioUtil.RequestValidator
	webhookBaseURL   string
	dryRun           bool
}

// NewClient returns a twilio client. When 'config' is missing credentials, the client
// runs in dry-run mode, logging messages instead of sending them.
func NewClient(config shared.TwilioConfig, appUrl string) *ClientWrapper {
	client := twilio.NewRestClientWithParams(twilio.RestClientParams{
		Username: config.AccountSid,
		Password: config.AuthToken,
	})

	return &ClientWrapper{
		client:           client,
		config:           config,
		webhookBaseURL:   appUrl,
		requestValidator: twilioUtil.NewRequestValidator(config.AuthToken),
		dryRun:           !config.TwilioEnabled(),
	}
}

func (cw *ClientWrapper) DryRun() bool {
	return cw.dryRun
}

// SendMessage sends 'msg' to 'to' and returns the message sid
func (cw *ClientWrapper) SendMessage(to, msg string) (string, error) {
	if cw.dryRun {
		sid := "dry-run-" + uuid.NewString()
		logg.Infof("[dry-run] SMS %v to %v:\n%v", sid, to, msg)
		return sid, nil
	}

	params := &openapi.CreateMessageParams{}
	params.SetMessagingServiceSid(cw.config.MessagingServiceSid)
	params.SetTo(to)
	params.SetBody(msg)
	if cw.webhookBaseURL != "" {
		params.SetStatusCallback(fullRequestURL(cw.webhookBaseURL, STATUS_CALLBACK_PATH))
	}

	resp, err := cw.client.ApiV2010.CreateMessage(params)
	if err != nil {
		return "", err
	}

	if resp.ErrorMessage != nil && *resp.ErrorMessage != "" {
		return "", fmt.Errorf("twilio: %v", *resp.ErrorMessage)
	}

	if resp.Sid == nil {
		return "", errors.New("twilio: no message sid returned")
	}

	return *resp.Sid, nil
}

func (cw *ClientWrapper) ValidateRequest(path string, urlValues url.Values, expectedSignature string) bool {
	if cw.dryRun {
		return true
	}

	// Get 'urlValues' as map[string]string so it's compatible with twilio request validator
	params := make(map[string]string)
	for key, val := range urlValues {
		params[key] = strings.Join(val, ",")
	}

	return cw.requestValidator.Validate(fullRequestURL(cw.webhookBaseURL, path), params, expectedSignature)
}

func fullRequestURL(appUrl, path string) string {
	refinedUrl := strings.TrimSuffix(appUrl, "/")

	// Set default scheme to https
	if !strings.HasPrefix(refinedUrl, "http") {
		refinedUrl = "https://" + refinedUrl
	}

	return refinedUrl + path
}
