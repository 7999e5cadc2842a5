package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"venue-admin-backend/internal/model"
	"venue-admin-backend/internal/mutation"
)

type collectionResponse[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

type removeManyRequest struct {
	IDs []string `json:"ids" binding:"required"`
}

// listCollection serves a cached collection.
func listCollection[T model.Identifiable](h *Handler, get func(context.Context) ([]T, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := get(c.Request.Context())
		if err != nil {
			h.fail(c, err)
			return
		}
		if items == nil {
			items = []T{}
		}
		c.JSON(http.StatusOK, collectionResponse[T]{Items: items, Count: len(items)})
	}
}

// createItems adds one item (JSON object) or several (JSON array) to the
// cached collection.
func createItems[T model.Identifiable](h *Handler, a *mutation.Applier[T]) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			badRequest(c, "invalid request")
			return
		}
		trimmed := bytes.TrimSpace(body)
		if len(trimmed) == 0 {
			badRequest(c, "invalid request")
			return
		}

		array := trimmed[0] == '['
		var items []T
		if array {
			if err := json.Unmarshal(trimmed, &items); err != nil {
				badRequest(c, "invalid request")
				return
			}
		} else {
			var item T
			if err := json.Unmarshal(trimmed, &item); err != nil {
				badRequest(c, "invalid request")
				return
			}
			items = []T{item}
		}
		for _, item := range items {
			if item.GetID() == "" {
				badRequest(c, "id is required")
				return
			}
		}

		if !array {
			err = a.Add(c.Request.Context(), items[0])
		} else {
			err = a.AddMany(c.Request.Context(), items)
		}
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, collectionResponse[T]{Items: items, Count: len(items)})
	}
}

// upsertItem replaces the item named by the path or appends it.
func upsertItem[T model.Identifiable](h *Handler, a *mutation.Applier[T]) gin.HandlerFunc {
	return func(c *gin.Context) {
		var item T
		if err := c.ShouldBindJSON(&item); err != nil {
			badRequest(c, "invalid request")
			return
		}
		if item.GetID() != c.Param("id") {
			badRequest(c, "id in body does not match path")
			return
		}
		if err := a.Upsert(c.Request.Context(), item); err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, item)
	}
}

// removeItem deletes the item named by the path.
func removeItem[T model.Identifiable](h *Handler, a *mutation.Applier[T]) gin.HandlerFunc {
	return func(c *gin.Context) {
		removed, err := a.Remove(c.Request.Context(), c.Param("id"))
		if err != nil {
			h.fail(c, err)
			return
		}
		if !removed {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// removeItems deletes every listed id and reports the ones that existed.
func removeItems[T model.Identifiable](h *Handler, a *mutation.Applier[T]) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req removeManyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request")
			return
		}
		removed, err := a.RemoveMany(c.Request.Context(), req.IDs)
		if err != nil {
			h.fail(c, err)
			return
		}
		if removed == nil {
			removed = []string{}
		}
		c.JSON(http.StatusOK, gin.H{"removed": removed})
	}
}
