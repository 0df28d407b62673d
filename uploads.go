package main

import (
	"bytes"
	"net/http"
	"path"

	"github.com/aurafoods/aura_backend/config"
	"github.com/aurafoods/aura_backend/models"
	"github.com/aurafoods/aura_backend/utils"
	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const maxImageSizeBytes int64 = 5 * 1024 * 1024

var imageMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// uploadProductImageHandler stores the original and a 400px thumbnail in
// GCS and writes both URLs onto the product.
func uploadProductImageHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()
		ctx := c.Request.Context()

		id, ok := idParam(c)
		if !ok {
			return
		}
		product, err := models.GetProduct(ctx, id)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}

		fileHeader, err := c.FormFile("image")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
			return
		}
		if fileHeader.Size > maxImageSizeBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file size exceeds 5MB limit"})
			return
		}
		contentType := fileHeader.Header.Get("Content-Type")
		if !imageMimeTypes[contentType] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported image type"})
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file"})
			return
		}
		defer file.Close()

		img, err := imaging.Decode(file, imaging.AutoOrientation(true))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image"})
			return
		}

		var original bytes.Buffer
		if err := imaging.Encode(&original, img, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "encode failed"})
			return
		}
		thumb := imaging.Fit(img, 400, 400, imaging.Lanczos)
		var thumbBuf bytes.Buffer
		if err := imaging.Encode(&thumbBuf, thumb, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "encode failed"})
			return
		}

		key := uuid.NewString()
		objectKey := path.Join("products", key+".jpg")
		thumbKey := path.Join("products", "thumbs", key+".jpg")

		imageURL, err := utils.UploadBytesToGCS(ctx, objectKey, original.Bytes(), "image/jpeg")
		if err != nil {
			config.LogError(logger, "uploads.go", "uploadProductImageHandler", "upload original", objectKey, err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "upload failed"})
			return
		}
		thumbURL, err := utils.UploadBytesToGCS(ctx, thumbKey, thumbBuf.Bytes(), "image/jpeg")
		if err != nil {
			config.LogError(logger, "uploads.go", "uploadProductImageHandler", "upload thumbnail", thumbKey, err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "upload failed"})
			return
		}

		db := config.GetDB()
		if err := db.WithContext(ctx).Model(product).Updates(map[string]interface{}{
			"ImageUrl":     imageURL,
			"ThumbnailUrl": thumbURL,
		}).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"image_url":     imageURL,
			"thumbnail_url": thumbURL,
		})
	}
}
