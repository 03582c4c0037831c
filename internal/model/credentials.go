package model

import "log/slog"

const redacted = "[redacted]"

// Credentials are the four opaque tokens the posting service needs.
// They format as redacted in every printing and logging path.
type Credentials struct {
	ConsumerKey       string
	ConsumerSecret    string
	AccessToken       string
	AccessTokenSecret string
}

// Complete reports whether every token is present.
func (c Credentials) Complete() bool {
	return c.ConsumerKey != "" &&
		c.ConsumerSecret != "" &&
		c.AccessToken != "" &&
		c.AccessTokenSecret != ""
}

func (c Credentials) String() string {
	return "Credentials" + redacted
}

func (c Credentials) GoString() string {
	return c.String()
}

func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("complete", c.Complete()),
		slog.String("tokens", redacted),
	)
}
