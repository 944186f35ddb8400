package handlers

import (
	"net/http"
	"sort"
	"sync"

	"github.com/gin-gonic/gin"

	intconfig "rentcore/internal/config"
)

var (
	routerMu sync.RWMutex
	router   *gin.Engine
)

// SetRouter keeps the engine for the /api/routes listing.
func SetRouter(r *gin.Engine) {
	routerMu.Lock()
	defer routerMu.Unlock()
	router = r
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "rentcore is running"})
}

func DBCheck(c *gin.Context) {
	if err := intconfig.PingDB(c.Request.Context()); err != nil {
		RespondError(c, http.StatusServiceUnavailable, "database unavailable", nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "database connection OK"})
}

// Routes lists the mounted routes sorted by path, then method.
func Routes(c *gin.Context) {
	routerMu.RLock()
	r := router
	routerMu.RUnlock()
	if r == nil {
		RespondError(c, http.StatusServiceUnavailable, "router not ready", nil)
		return
	}

	routes := r.Routes()
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
	out := make([]string, 0, len(routes))
	for _, rt := range routes {
		out = append(out, rt.Method+" "+rt.Path)
	}
	c.JSON(http.StatusOK, gin.H{"count": len(out), "routes": out})
}
