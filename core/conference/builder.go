package conference

import (
	"net/url"
	"path"
	"strings"

	"github.com/koscakluka/meethost/internal/utils"
)

type Builder struct {
	options Options
}

func NewBuilder() *Builder { return &Builder{} }

func (b *Builder) SetServerURL(serverURL string) *Builder {
	b.options.serverURL = strings.TrimRight(serverURL, "/")
	return b
}

// SetRoom accepts a bare room name or a full conference URL. For a URL the
// origin becomes the server URL, the last path segment the room, and a
// "jwt" query parameter the token.
func (b *Builder) SetRoom(room string) *Builder {
	u, err := url.Parse(room)
	if err != nil || u.Scheme == "" || u.Host == "" {
		b.options.room = room
		return b
	}

	b.options.serverURL = u.Scheme + "://" + u.Host
	b.options.room = ""
	if trimmed := strings.Trim(u.Path, "/"); trimmed != "" {
		segment := path.Base(trimmed)
		if unescaped, err := url.PathUnescape(segment); err == nil {
			segment = unescaped
		}
		b.options.room = segment
	}
	if jwt := u.Query().Get("jwt"); jwt != "" {
		b.options.token = jwt
	}
	return b
}

func (b *Builder) SetToken(token string) *Builder {
	b.options.token = token
	return b
}

func (b *Builder) SetSubject(subject string) *Builder {
	b.options.subject = subject
	return b
}

func (b *Builder) SetAudioMuted(muted bool) *Builder {
	b.options.audioMuted = utils.Ptr(muted)
	return b
}

func (b *Builder) SetVideoMuted(muted bool) *Builder {
	b.options.videoMuted = utils.Ptr(muted)
	return b
}

func (b *Builder) SetAudioOnly(audioOnly bool) *Builder {
	b.options.audioOnly = utils.Ptr(audioOnly)
	return b
}

func (b *Builder) SetFeatureFlag(flag string, value any) *Builder {
	if b.options.featureFlags == nil {
		b.options.featureFlags = map[string]any{}
	}
	b.options.featureFlags[flag] = value
	return b
}

// SetConfigOverride overrides a single engine config value for this
// conference only.
func (b *Builder) SetConfigOverride(key string, value any) *Builder {
	if b.options.config == nil {
		b.options.config = map[string]any{}
	}
	b.options.config[key] = value
	return b
}

func (b *Builder) SetUserInfo(info UserInfo) *Builder {
	b.options.userInfo = &info
	return b
}

// Build returns an immutable snapshot; the builder stays usable.
func (b *Builder) Build() Options {
	return b.options.clone()
}
