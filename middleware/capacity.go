package middleware

import (
	"net/http"
	"sync/atomic"

	"github.com/julienschmidt/httprouter"
	"github.com/reelforge/reelforge-api/config"
	"github.com/reelforge/reelforge-api/pipeline"
)

type CapacityMiddleware struct {
	requestsInFlight atomic.Int64
}

// HasCapacity rejects new edit requests with 429 once the number of running
// pipeline jobs plus concurrently admitted requests reaches the limit.
func (c *CapacityMiddleware) HasCapacity(engine *pipeline.Coordinator, next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		inFlightReqs := c.requestsInFlight.Add(1)
		defer c.requestsInFlight.Add(-1)

		if engine.InFlightJobs()+int(inFlightReqs)-1 >= config.MaxInFlightJobs {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}

		next(w, r, ps)
	}
}
