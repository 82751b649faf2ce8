// Package intent models the host platform's launch and broadcast messages
// without depending on any UI toolkit.
package intent

import (
	"maps"
	"net/url"
)

// ActionView is the platform's generic "open this URI" action. Deep links
// arrive with it.
const ActionView = "android.intent.action.VIEW"

// Intent is an action plus an optional data URI and a bag of extras.
type Intent struct {
	Action string
	Data   *url.URL

	extras map[string]any
}

func New(action string) *Intent {
	return &Intent{Action: action}
}

// NewView builds an ActionView intent for rawURL.
func NewView(rawURL string) (*Intent, error) {
	data, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	return &Intent{Action: ActionView, Data: data}, nil
}

func (i *Intent) WithData(data *url.URL) *Intent {
	i.Data = data
	return i
}

// PutExtra attaches value under key, replacing any previous value.
func (i *Intent) PutExtra(key string, value any) *Intent {
	if i.extras == nil {
		i.extras = map[string]any{}
	}
	i.extras[key] = value
	return i
}

// PutExtras copies every entry of extras onto the intent.
func (i *Intent) PutExtras(extras map[string]any) *Intent {
	for k, v := range extras {
		i.PutExtra(k, v)
	}
	return i
}

func (i *Intent) Extra(key string) (any, bool) {
	if i == nil || i.extras == nil {
		return nil, false
	}
	v, ok := i.extras[key]
	return v, ok
}

// Extras returns a copy of the attached extras, or nil when there are none.
func (i *Intent) Extras() map[string]any {
	if i == nil || len(i.extras) == 0 {
		return nil
	}
	return maps.Clone(i.extras)
}

func (i *Intent) HasExtras() bool {
	return i != nil && len(i.extras) > 0
}

// Clone returns a deep-enough copy: the extras map is duplicated, values are shared.
func (i *Intent) Clone() *Intent {
	if i == nil {
		return nil
	}
	clone := &Intent{Action: i.Action, extras: maps.Clone(i.extras)}
	if i.Data != nil {
		data := *i.Data
		clone.Data = &data
	}
	return clone
}

func (i *Intent) String() string {
	if i == nil {
		return "<nil intent>"
	}
	if i.Data != nil {
		return i.Action + " " + i.Data.String()
	}
	return i.Action
}
