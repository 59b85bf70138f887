package handler

import (
	"fmt"
	"io"
	"mime/multipart"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// getPathInt64 retrieves a positive integer path parameter
func getPathInt64(c *gin.Context, paramName string) (int64, error) {
	value, err := strconv.ParseInt(c.Param(paramName), 10, 64)
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer", paramName)
	}
	return value, nil
}

// getPathParam retrieves a path parameter and validates it's not empty
func getPathParam(c *gin.Context, paramName string) (string, error) {
	value := c.Param(paramName)
	if value == "" {
		return "", fmt.Errorf("%s is required", paramName)
	}
	return value, nil
}

// getQueryUint retrieves an unsigned integer query parameter with a default value
func getQueryUint(c *gin.Context, paramName string, defaultValue uint64) (uint64, error) {
	valueStr := c.Query(paramName)
	if valueStr == "" {
		return defaultValue, nil
	}

	value, err := strconv.ParseUint(valueStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: must be a non-negative integer", paramName)
	}

	return value, nil
}

// parseDate parses a date string in YYYY-MM-DD format
func parseDate(dateStr string) (*time.Time, error) {
	if dateStr == "" {
		return nil, nil
	}

	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return nil, fmt.Errorf("invalid date format: expected YYYY-MM-DD")
	}

	return &date, nil
}

// getFormFiles retrieves every file sent under any of the given field names
func getFormFiles(c *gin.Context, fieldNames ...string) ([]*multipart.FileHeader, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, fmt.Errorf("invalid multipart form: %v", err)
	}

	var files []*multipart.FileHeader
	for _, name := range fieldNames {
		files = append(files, form.File[name]...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no %s provided", fieldNames[0])
	}
	return files, nil
}

// readFormFile reads an uploaded file fully
func readFormFile(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

// bindJSON binds JSON request body to a struct
func bindJSON(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindJSON(obj); err != nil {
		return fmt.Errorf("invalid JSON format: %v", err)
	}
	return nil
}
