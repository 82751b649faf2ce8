package conference

import (
	"encoding/json"
	"fmt"
	"maps"

	"github.com/go-viper/mapstructure/v2"
	"github.com/invopop/jsonschema"
	"github.com/jinzhu/copier"
)

// Payload is the serialized form of Options, used on the engine wire, in
// launch intents built from JSON, and for the published schema.
type Payload struct {
	URL          string         `json:"url,omitempty" mapstructure:"url" jsonschema:"description=Full conference URL; sets server URL and room"`
	ServerURL    string         `json:"serverURL,omitempty" mapstructure:"serverURL" jsonschema:"format=uri"`
	Room         string         `json:"room,omitempty" mapstructure:"room"`
	Token        string         `json:"token,omitempty" mapstructure:"token" jsonschema:"description=JWT used to authenticate with the server"`
	Subject      string         `json:"subject,omitempty" mapstructure:"subject"`
	AudioMuted   *bool          `json:"audioMuted,omitempty" mapstructure:"audioMuted"`
	VideoMuted   *bool          `json:"videoMuted,omitempty" mapstructure:"videoMuted"`
	AudioOnly    *bool          `json:"audioOnly,omitempty" mapstructure:"audioOnly"`
	FeatureFlags map[string]any `json:"featureFlags,omitempty" mapstructure:"featureFlags"`
	Config       map[string]any `json:"config,omitempty" mapstructure:"config"`
	UserInfo     *UserInfo      `json:"userInfo,omitempty" mapstructure:"userInfo"`
}

func (o Options) Payload() Payload {
	c := o.clone()
	p := Payload{
		ServerURL:    c.serverURL,
		Room:         c.room,
		Token:        c.token,
		Subject:      c.subject,
		AudioMuted:   c.audioMuted,
		VideoMuted:   c.videoMuted,
		AudioOnly:    c.audioOnly,
		FeatureFlags: c.featureFlags,
		Config:       c.config,
		UserInfo:     c.userInfo,
	}
	if c.serverURL != "" && c.room != "" {
		p.URL = c.URL()
	}
	return p
}

// FromPayload builds Options from p. A URL is applied first so explicit
// server and room fields win over it.
func FromPayload(p Payload) Options {
	b := NewBuilder()
	if p.URL != "" {
		b.SetRoom(p.URL)
	}
	if p.ServerURL != "" {
		b.SetServerURL(p.ServerURL)
	}
	if p.Room != "" {
		b.SetRoom(p.Room)
	}
	if p.Token != "" {
		b.SetToken(p.Token)
	}
	if p.Subject != "" {
		b.SetSubject(p.Subject)
	}
	if p.AudioMuted != nil {
		b.SetAudioMuted(*p.AudioMuted)
	}
	if p.VideoMuted != nil {
		b.SetVideoMuted(*p.VideoMuted)
	}
	if p.AudioOnly != nil {
		b.SetAudioOnly(*p.AudioOnly)
	}
	for flag, value := range p.FeatureFlags {
		b.SetFeatureFlag(flag, value)
	}
	for key, value := range p.Config {
		b.SetConfigOverride(key, value)
	}
	if p.UserInfo != nil {
		b.SetUserInfo(*p.UserInfo)
	}
	return b.Build()
}

// FromMap decodes a loosely typed options map, as found in launch intents
// built from JSON. Unknown keys are rejected.
func FromMap(m map[string]any) (Options, error) {
	var p Payload
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &p,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return Options{}, err
	}
	if err := decoder.Decode(m); err != nil {
		return Options{}, fmt.Errorf("invalid conference options: %w", err)
	}
	return FromPayload(p), nil
}

func (o Options) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.Payload())
}

func (o *Options) UnmarshalJSON(data []byte) error {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*o = FromPayload(p)
	return nil
}

// MergeDefaults fills every field o leaves unset from defaults. Feature
// flags and config overrides are merged key by key, o winning.
func MergeDefaults(defaults, o Options) (Options, error) {
	merged := defaults.Payload()
	override := o.Payload()
	flags, config := override.FeatureFlags, override.Config
	override.FeatureFlags, override.Config = nil, nil
	override.URL, merged.URL = "", ""

	if err := copier.CopyWithOption(&merged, &override, copier.Option{IgnoreEmpty: true, DeepCopy: true}); err != nil {
		return Options{}, fmt.Errorf("failed to merge conference options: %w", err)
	}

	if len(flags) > 0 {
		if merged.FeatureFlags == nil {
			merged.FeatureFlags = map[string]any{}
		}
		maps.Copy(merged.FeatureFlags, flags)
	}
	if len(config) > 0 {
		if merged.Config == nil {
			merged.Config = map[string]any{}
		}
		maps.Copy(merged.Config, config)
	}

	return FromPayload(merged), nil
}

// Schema describes Payload for clients that build launch requests.
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{DoNotReference: true}
	return reflector.Reflect(&Payload{})
}
