// Package conference holds the immutable options a host passes to the
// engine when joining a conference.
package conference

import (
	"maps"
	"net/url"
	"strings"

	"github.com/koscakluka/meethost/internal/utils"
)

type UserInfo struct {
	DisplayName string `json:"displayName,omitempty" mapstructure:"displayName"`
	Email       string `json:"email,omitempty" mapstructure:"email"`
	AvatarURL   string `json:"avatarURL,omitempty" mapstructure:"avatarURL" jsonschema:"format=uri"`
}

// Options is built with a Builder and never changes afterwards. The zero
// value joins nothing: the engine shows its welcome page.
type Options struct {
	serverURL    string
	room         string
	token        string
	subject      string
	audioMuted   *bool
	videoMuted   *bool
	audioOnly    *bool
	featureFlags map[string]any
	config       map[string]any
	userInfo     *UserInfo
}

func (o Options) ServerURL() string { return o.serverURL }
func (o Options) Room() string      { return o.room }
func (o Options) Token() string     { return o.token }
func (o Options) Subject() string   { return o.subject }

// AudioMuted returns the requested initial mute state and whether it was set.
func (o Options) AudioMuted() (muted, set bool) { return utils.Deref(o.audioMuted, false), o.audioMuted != nil }
func (o Options) VideoMuted() (muted, set bool) { return utils.Deref(o.videoMuted, false), o.videoMuted != nil }
func (o Options) AudioOnly() (audioOnly, set bool) {
	return utils.Deref(o.audioOnly, false), o.audioOnly != nil
}

func (o Options) FeatureFlags() map[string]any { return maps.Clone(o.featureFlags) }
func (o Options) Config() map[string]any       { return maps.Clone(o.config) }

func (o Options) UserInfo() (UserInfo, bool) {
	if o.userInfo == nil {
		return UserInfo{}, false
	}
	return *o.userInfo, true
}

// URL is the conference address: server URL joined with the room, or the
// bare room when no server is known.
func (o Options) URL() string {
	if o.room == "" {
		return o.serverURL
	}
	if o.serverURL == "" {
		return o.room
	}
	return strings.TrimRight(o.serverURL, "/") + "/" + url.PathEscape(o.room)
}

func (o Options) IsZero() bool {
	return o.serverURL == "" && o.room == "" && o.token == "" && o.subject == "" &&
		o.audioMuted == nil && o.videoMuted == nil && o.audioOnly == nil &&
		len(o.featureFlags) == 0 && len(o.config) == 0 && o.userInfo == nil
}

// Builder returns a builder seeded with o, for deriving modified options.
func (o Options) Builder() *Builder {
	b := NewBuilder()
	b.options = o.clone()
	return b
}

func (o Options) clone() Options {
	c := o
	c.featureFlags = maps.Clone(o.featureFlags)
	c.config = maps.Clone(o.config)
	if o.userInfo != nil {
		info := *o.userInfo
		c.userInfo = &info
	}
	return c
}
