package zkteco

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// deviceOptionTTL bounds how long a getDeviceOption() reply (serial
// number, platform string, firmware, ...) is considered fresh. These are
// read-mostly values a CLI driver tends to fetch in a batch
// (SerialNumber, DeviceName, Platform, ...); without a cache that's one
// OPTIONS_RRQ round trip per field for data that essentially never
// changes during a session.
const deviceOptionTTL = 30 * time.Second

// optionCache wraps patrickmn/go-cache with the single operation the
// device-option getters need. Grounded in ARwMq9b6-dnsproxy's domain/IP
// caches, the pack's closest analog to "cache a small read-mostly string
// keyed by a short key, with a TTL".
type optionCache struct {
	c *gocache.Cache
}

func newOptionCache() *optionCache {
	return &optionCache{c: gocache.New(deviceOptionTTL, 2*deviceOptionTTL)}
}

func (o *optionCache) get(key string) (string, bool) {
	if o == nil {
		return "", false
	}
	v, ok := o.c.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func (o *optionCache) set(key, value string) {
	if o == nil {
		return
	}
	o.c.SetDefault(key, value)
}

func (o *optionCache) invalidate(key string) {
	if o == nil {
		return
	}
	o.c.Delete(key)
}
