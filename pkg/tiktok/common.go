package tiktok

const (
	// HeaderAccessToken carries the shop access token.
	HeaderAccessToken = "x-tts-access-token"
	// DefaultContentType is used when no content type is supplied.
	DefaultContentType = "application/json"
)

// Service identifies the calling application.
type Service struct {
	AppKey string `json:"app_key" yaml:"app_key" mapstructure:"app_key"`
}

// Auth carries the credentials every call needs.
type Auth struct {
	AccessToken string  `json:"access_token" yaml:"access_token" mapstructure:"access_token"`
	Service     Service `json:"service" yaml:"service" mapstructure:"service"`
}

// CommonParameters returns the headers and query parameters shared by all
// API calls: the access token header, the content type, the app key and a
// fresh timestamp.
func CommonParameters(auth Auth, contentType string) (map[string]string, *Params) {
	if contentType == "" {
		contentType = DefaultContentType
	}
	headers := map[string]string{
		HeaderAccessToken: auth.AccessToken,
		"Content-Type":    contentType,
	}
	params := NewParams(
		ParamAppKey, auth.Service.AppKey,
		ParamTimestamp, Timestamp(),
	)
	return headers, params
}
