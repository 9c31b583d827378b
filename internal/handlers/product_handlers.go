package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"commerce-service/internal/middleware"
	"commerce-service/internal/models"
	"commerce-service/internal/services"
)

// ProductHandler handles catalog and review requests
type ProductHandler struct {
	catalog *services.CatalogService
	reviews *services.ReviewService
	logger  *logrus.Logger
}

// NewProductHandler creates a new product handler
func NewProductHandler(catalog *services.CatalogService, reviews *services.ReviewService, logger *logrus.Logger) *ProductHandler {
	if logger == nil {
		logger = logrus.New()
	}
	return &ProductHandler{catalog: catalog, reviews: reviews, logger: logger}
}

func queryPrice(c *gin.Context, name string) (*int64, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, errors.New(name + " must be an integer")
	}
	return &value, nil
}

// ListProducts lists products
// @Summary List products
// @Tags products
// @Produce json
// @Param keyword query string false "Name contains"
// @Param category query string false "Category"
// @Param brand query string false "Brand"
// @Param min_price query int false "Minimum price"
// @Param max_price query int false "Maximum price"
// @Param page query int false "Page number"
// @Success 200 {object} models.ProductListResponse
// @Router /api/products [get]
func (h *ProductHandler) ListProducts(c *gin.Context) {
	filter := models.ProductFilter{
		Keyword:  c.Query("keyword"),
		Category: c.Query("category"),
		Brand:    c.Query("brand"),
		Page:     queryPage(c),
	}
	var err error
	if filter.MinPrice, err = queryPrice(c, "min_price"); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}
	if filter.MaxPrice, err = queryPrice(c, "max_price"); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	resp, err := h.catalog.ListProducts(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetProduct returns one product with images and reviews
// @Summary Get product
// @Tags products
// @Produce json
// @Param id path int true "Product ID"
// @Success 200 {object} map[string]models.Product
// @Failure 404 {object} models.ErrorResponse
// @Router /api/products/{id} [get]
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	product, err := h.catalog.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

// NewProduct creates a product owned by the caller
// @Summary Create product
// @Tags products
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreateProductRequest true "Product"
// @Success 200 {object} map[string]models.Product
// @Failure 400 {object} models.ErrorResponse
// @Router /api/products/new [post]
func (h *ProductHandler) NewProduct(c *gin.Context) {
	var req models.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	product, err := h.catalog.CreateProduct(c.Request.Context(), middleware.CurrentUserID(c), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

// UploadProductImages stores images for a product
// @Summary Upload product images
// @Tags products
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param product formData int true "Product ID"
// @Param images formData file true "Images"
// @Success 200 {array} models.ProductImage
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /api/products/upload_images [post]
func (h *ProductHandler) UploadProductImages(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid multipart form", Details: err.Error()})
		return
	}

	productID, err := strconv.ParseUint(c.PostForm("product"), 10, 64)
	if err != nil || productID == 0 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "A valid product id is required"})
		return
	}

	headers := form.File["images"]
	files := make([]services.ImageFile, 0, len(headers))
	var opened []multipart.File
	defer func() {
		for _, f := range opened {
			f.Close()
		}
	}()
	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Failed to read uploaded image", Details: err.Error()})
			return
		}
		opened = append(opened, f)
		files = append(files, services.ImageFile{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Content:     f,
		})
	}

	images, err := h.catalog.UploadImages(c.Request.Context(), middleware.CurrentUserID(c), uint(productID), files)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, images)
}

// UpdateProduct applies a partial update
// @Summary Update product
// @Tags products
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Product ID"
// @Param request body models.UpdateProductRequest true "Fields to change"
// @Success 200 {object} map[string]models.Product
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/products/{id} [put]
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req models.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	product, err := h.catalog.UpdateProduct(c.Request.Context(), middleware.CurrentUserID(c), id, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

// DeleteProduct removes a product and its images
// @Summary Delete product
// @Tags products
// @Produce json
// @Security BearerAuth
// @Param id path int true "Product ID"
// @Success 200 {object} models.DetailsResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/products/{id} [delete]
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteProduct(c.Request.Context(), middleware.CurrentUserID(c), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, models.DetailsResponse{Details: "Product is deleted"})
}

// DeleteProductImage removes one product image
// @Summary Delete product image
// @Tags products
// @Produce json
// @Security BearerAuth
// @Param id path int true "Image ID"
// @Success 200 {object} models.DetailsResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/products/images/{id} [delete]
func (h *ProductHandler) DeleteProductImage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteImage(c.Request.Context(), middleware.CurrentUserID(c), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, models.DetailsResponse{Details: "Image is deleted"})
}

// CreateReview creates or replaces the caller's review
// @Summary Review a product
// @Tags reviews
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Product ID"
// @Param request body models.ReviewRequest true "Review"
// @Success 200 {object} map[string]string
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/products/{id}/reviews [post]
func (h *ProductHandler) CreateReview(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req models.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.reviews.UpsertReview(c.Request.Context(), middleware.CurrentUserID(c), id, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if result.Created {
		c.JSON(http.StatusOK, gin.H{"detail": "New Review Created"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "Review Updated"})
}

// DeleteReview removes the caller's review
// @Summary Delete own review
// @Tags reviews
// @Produce json
// @Security BearerAuth
// @Param id path int true "Product ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/products/{id}/reviews [delete]
func (h *ProductHandler) DeleteReview(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if _, err := h.reviews.DeleteReview(c.Request.Context(), middleware.CurrentUserID(c), id); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"detail": services.Message(err)})
			return
		}
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "Review Deleted"})
}
