package http

import (
	"context"
	"errors"
	"net/http"
	"path"
	"strconv"
	"strings"

	"catalog-service/internal/catalog"

	"github.com/gin-gonic/gin"
)

const defaultPage = 1

type CatalogService interface {
	Create(ctx context.Context, rec catalog.Record) (catalog.Item, error)
	Get(ctx context.Context, id string) (catalog.Item, error)
	List(ctx context.Context, page, limit int) ([]catalog.Item, int64, error)
}

// UploadStager produces a time-limited write URL for a storage key.
type UploadStager interface {
	PresignUpload(ctx context.Context, key string) (string, error)
}

type Handler struct {
	service CatalogService
	stager  UploadStager
}

func NewHandler(svc CatalogService, stager UploadStager) *Handler {
	return &Handler{service: svc, stager: stager}
}

type errorResponse struct {
	Error string `json:"error" example:"product not found"`
}

type listProductsResponse struct {
	Items      []catalog.Item `json:"items"`
	Pagination paginationMeta `json:"pagination"`
}

type paginationMeta struct {
	Page  int   `json:"page" example:"1"`
	Limit int   `json:"limit" example:"0"`
	Total int64 `json:"total" example:"42"`
}

type stageUploadResponse struct {
	UploadURL string `json:"upload_url" example:"https://storage.local/catalog-uploads/uploaded/products.csv?signature=..."`
	Key       string `json:"key" example:"uploaded/products.csv"`
}

// CreateProduct godoc
// @Summary      Create a product directly
// @Description  Validates the payload and writes the product and its stock count atomically.
// @Tags         products
// @Accept       json
// @Produce      json
// @Security     BasicAuth
// @Param        body  body      catalog.Record  true  "Candidate product"
// @Success      201   {object}  catalog.Item
// @Failure      400   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /products [post]
func (h *Handler) CreateProduct(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	rec, err := catalog.ParseRecord(payload)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	item, err := h.service.Create(c.Request.Context(), rec)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to create product"})
		return
	}

	c.JSON(http.StatusCreated, item)
}

// GetProduct godoc
// @Summary      Get a product by id
// @Tags         products
// @Produce      json
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  catalog.Item
// @Failure      404  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /products/{id} [get]
func (h *Handler) GetProduct(c *gin.Context) {
	item, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			c.JSON(http.StatusNotFound, errorResponse{Error: catalog.ErrNotFound.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to get product"})
		return
	}

	c.JSON(http.StatusOK, item)
}

// ListProducts godoc
// @Summary      List products with stock counts
// @Description  Returns the whole catalog unless page/limit are given.
// @Tags         products
// @Produce      json
// @Param        page   query     int  false  "Page number"
// @Param        limit  query     int  false  "Items per page (0 = all)"
// @Success      200    {object}  listProductsResponse
// @Failure      500    {object}  errorResponse
// @Router       /products [get]
func (h *Handler) ListProducts(c *gin.Context) {
	page := parseQueryInt(c.Query("page"), defaultPage)
	limit := parseQueryInt(c.Query("limit"), 0)

	items, total, err := h.service.List(c.Request.Context(), page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to get products"})
		return
	}

	c.JSON(http.StatusOK, listProductsResponse{
		Items: items,
		Pagination: paginationMeta{
			Page:  page,
			Limit: limit,
			Total: total,
		},
	})
}

// StageUpload godoc
// @Summary      Request an upload URL for a CSV import file
// @Description  Returns a time-limited PUT URL; the import pipeline fires once the client uploads the object.
// @Tags         import
// @Produce      json
// @Security     BasicAuth
// @Param        name  query     string  true  "File name, must end in .csv"
// @Success      200   {object}  stageUploadResponse
// @Failure      400   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /import [get]
func (h *Handler) StageUpload(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "name query parameter is required"})
		return
	}
	if !strings.EqualFold(path.Ext(name), catalog.UploadExtension) {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "only .csv files are supported"})
		return
	}

	key := catalog.UploadPrefix + name
	uploadURL, err := h.stager.PresignUpload(c.Request.Context(), key)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to stage upload"})
		return
	}

	c.JSON(http.StatusOK, stageUploadResponse{
		UploadURL: uploadURL,
		Key:       key,
	})
}

func parseQueryInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return fallback
	}
	return value
}
