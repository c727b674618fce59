package logtest

import (
	"context"
	"maps"

	"github.com/wu-yy/logtest/anchor"
)

var propertiesKey = anchor.NewKey[map[string]string]("logtest.properties")

// SetProperty sets a test property visible from scope and its descendants.
// Properties set on a scope are forgotten when it exits.
func (p *Plugin) SetProperty(scope *anchor.Scope, key, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	curr, ok := anchor.Local(p.reg, scope, propertiesKey)
	if !ok {
		_, err := anchor.Attach(p.reg, scope, propertiesKey, map[string]string{key: value}, func(context.Context) error {
			anchor.Remove(p.reg, scope, propertiesKey)
			return nil
		})
		return err
	}

	// readers may hold the previous map
	next := maps.Clone(curr)
	next[key] = value
	anchor.Set(p.reg, scope, propertiesKey, next)
	return nil
}

// Property resolves key from scope, then from its ancestors.
func (p *Plugin) Property(scope *anchor.Scope, key string) (string, bool) {
	for s := scope; s != nil; s = s.Parent() {
		props, ok := anchor.Local(p.reg, s, propertiesKey)
		if !ok {
			continue
		}
		if v, ok := props[key]; ok {
			return v, true
		}
	}
	return "", false
}
