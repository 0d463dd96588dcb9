package delivery

import (
	"github.com/tendant/settle-idm/pkg/credential"
	"github.com/tendant/settle-idm/pkg/twofa"
)

// Registry looks channels up by method
type Registry struct {
	channels map[twofa.Method]Channel
}

// NewRegistry registers channels; a later channel replaces an earlier one with the same method
func NewRegistry(channels ...Channel) *Registry {
	r := &Registry{channels: make(map[twofa.Method]Channel, len(channels))}
	for _, ch := range channels {
		if ch != nil {
			r.channels[ch.Method()] = ch
		}
	}
	return r
}

// Get returns the channel for method if it is configured
func (r *Registry) Get(method twofa.Method) (Channel, error) {
	ch, ok := r.channels[method]
	if !ok || !ch.Available() {
		return nil, ErrChannelUnavailable
	}
	return ch, nil
}

// For returns the channel for method if it is configured and reaches user
func (r *Registry) For(method twofa.Method, user credential.User) (Channel, error) {
	ch, err := r.Get(method)
	if err != nil {
		return nil, err
	}
	if !ch.Reaches(user) {
		return nil, ErrChannelUnavailable
	}
	return ch, nil
}

// Available lists the configured methods that reach user, in display order
func (r *Registry) Available(user credential.User) []twofa.Method {
	var out []twofa.Method
	for _, m := range twofa.Methods {
		if _, err := r.For(m, user); err == nil {
			out = append(out, m)
		}
	}
	return out
}

// Alternatives lists Available methods other than current
func (r *Registry) Alternatives(user credential.User, current twofa.Method) []twofa.Method {
	var out []twofa.Method
	for _, m := range r.Available(user) {
		if m != current {
			out = append(out, m)
		}
	}
	return out
}
