// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pdiddy/menu-engine/internal/store"
	"github.com/pdiddy/menu-engine/pkg/types"
)

type extractBody struct {
	RestaurantName string `json:"restaurantName"`
	Location       string `json:"location"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func bindRequest(c *gin.Context) (types.ExtractionRequest, bool) {
	var body extractBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.Error(fmt.Errorf("%w: %v", types.ErrInvalidRequest, err))
		return types.ExtractionRequest{}, false
	}
	req, err := types.NewExtractionRequest(body.RestaurantName, body.Location)
	if err != nil {
		c.Error(err)
		return types.ExtractionRequest{}, false
	}
	return req, true
}

func (s *Server) extractMenu(c *gin.Context) {
	req, ok := bindRequest(c)
	if !ok {
		return
	}
	doc, err := s.menus.Resolve(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (s *Server) extractSimple(c *gin.Context) {
	req, ok := bindRequest(c)
	if !ok {
		return
	}
	res, err := s.text.RecognizeOnly(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func queryInt(c *gin.Context, name string, def int) (int, error) {
	v := c.Query(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", types.ErrInvalidRequest, name)
	}
	return n, nil
}

func (s *Server) listMenus(c *gin.Context) {
	limit, err := queryInt(c, "limit", 20)
	if err != nil {
		c.Error(err)
		return
	}
	skip, err := queryInt(c, "skip", 0)
	if err != nil {
		c.Error(err)
		return
	}
	recs, total, err := s.menus.List(c.Request.Context(), limit, skip)
	if err != nil {
		c.Error(err)
		return
	}
	if recs == nil {
		recs = []store.Record{}
	}
	c.JSON(http.StatusOK, gin.H{"total": total, "limit": limit, "skip": skip, "menus": recs})
}

func pathRequest(c *gin.Context) (types.ExtractionRequest, bool) {
	req, err := types.NewExtractionRequest(c.Param("name"), c.Query("location"))
	if err != nil {
		c.Error(err)
		return types.ExtractionRequest{}, false
	}
	return req, true
}

func (s *Server) getMenu(c *gin.Context) {
	req, ok := pathRequest(c)
	if !ok {
		return
	}
	doc, err := s.menus.Lookup(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (s *Server) deleteMenu(c *gin.Context) {
	req, ok := pathRequest(c)
	if !ok {
		return
	}
	existed, err := s.menus.Evict(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}
	if !existed {
		c.Error(fmt.Errorf("%w: no stored menu for %q", types.ErrNotFound, req.Query()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true, "key": req.Key()})
}
