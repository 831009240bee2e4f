package routines

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/2beens/workouttracker/internal/telemetry/metrics"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
)

const megabyte = 1024 * 1024

// DetailCache keeps fully loaded routines (with exercises) keyed by owner and id.
type DetailCache struct {
	cache          *freecache.Cache
	ttlSeconds     int
	metricsManager *metrics.Manager
}

func NewDetailCache(sizeMB, ttlSeconds int, metricsManager *metrics.Manager) *DetailCache {
	return &DetailCache{
		cache:          freecache.NewCache(sizeMB * megabyte),
		ttlSeconds:     ttlSeconds,
		metricsManager: metricsManager,
	}
}

func cacheKey(userID, routineID int) []byte {
	return []byte(fmt.Sprintf("routine::%d::%d", userID, routineID))
}

func (c *DetailCache) Get(userID, routineID int) (*Routine, bool) {
	routineBytes, err := c.cache.Get(cacheKey(userID, routineID))
	if err != nil {
		if !errors.Is(err, freecache.ErrNotFound) {
			log.Errorf("get routine %d from cache: %s", routineID, err)
		}
		c.count("miss")
		return nil, false
	}

	routine := &Routine{}
	if err := json.Unmarshal(routineBytes, routine); err != nil {
		log.Errorf("unmarshal cached routine %d: %s", routineID, err)
		c.count("miss")
		return nil, false
	}

	c.count("hit")
	return routine, true
}

func (c *DetailCache) Set(routine *Routine) {
	routineBytes, err := json.Marshal(routine)
	if err != nil {
		log.Errorf("marshal routine %d for cache: %s", routine.ID, err)
		return
	}
	if err := c.cache.Set(cacheKey(routine.UserID, routine.ID), routineBytes, c.ttlSeconds); err != nil {
		log.Warnf("cache routine %d: %s", routine.ID, err)
	}
}

func (c *DetailCache) Invalidate(userID, routineID int) {
	c.cache.Del(cacheKey(userID, routineID))
}

func (c *DetailCache) count(result string) {
	if c.metricsManager == nil {
		return
	}
	c.metricsManager.CounterRoutineCache.WithLabelValues(result).Inc()
}
