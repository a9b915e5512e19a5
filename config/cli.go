package config

import (
	"flag"
	"net/url"
	"strings"
)

type Cli struct {
	HTTPAddress         string
	HTTPInternalAddress string
	APIToken            string

	DatabaseURL string
	StorageRoot string

	// External capability endpoints. An empty URL disables the capability.
	VisionAPIURL        *url.URL
	VisionAPIKey        string
	VisionModel         string
	LLMAPIURL           *url.URL
	LLMAPIKey           string
	LLMModel            string
	TranscriptionAPIURL *url.URL
	TranscriptionAPIKey string
	SceneAPIURL         *url.URL
	SceneAPIKey         string
	ObjectStoreURL      *url.URL
	ObjectStoreAPIKey   string
	ObjectStoreBucket   string

	// Agent tunables
	MaxFrames             int
	MaxScenes             int
	MaxTranscriptSegments int
	FrameGranularitySecs  float64
}

func (cli *Cli) OwnInternalURL() string {
	// Replace 0.0.0.0 with localhost
	addr := strings.ReplaceAll(cli.HTTPInternalAddress, "0.0.0.0", "127.0.0.1")
	return "http://" + addr
}

func parseURL(s string, dest **url.URL) error {
	if s == "" {
		*dest = nil
		return nil
	}
	u, err := url.Parse(s)
	if err != nil {
		return err
	}
	if _, err = url.ParseQuery(u.RawQuery); err != nil {
		return err
	}
	*dest = u
	return nil
}

func URLVarFlag(fs *flag.FlagSet, dest **url.URL, name, value, usage string) {
	if err := parseURL(value, dest); err != nil {
		panic(err)
	}
	fs.Func(name, usage, func(s string) error {
		return parseURL(s, dest)
	})
}
