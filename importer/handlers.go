package importer

import (
	"bytes"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/portal_backend/config"
	"github.com/mmdatafocus/portal_backend/utils"
	"gorm.io/gorm"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handlers struct {
	db func() *gorm.DB
}

func NewHandlers() *Handlers {
	return &Handlers{db: config.GetDB}
}

func failure(c *gin.Context, status int, message string, stats any) {
	body := gin.H{"error": true, "status": status, "message": message}
	if stats != nil {
		body["stats"] = stats
	}
	c.JSON(status, body)
}

// ImportHandler accepts one batch {data, total, stats, isLastBatch} for the
// kind named in the path.
func (h *Handlers) ImportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		kind, err := ParseKind(c.Param("kind"))
		if err != nil {
			failure(c, http.StatusNotFound, err.Error(), nil)
			return
		}
		var req BatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			failure(c, http.StatusBadRequest, "invalid request", nil)
			return
		}
		actor, _ := utils.GetUsernameFromContext(c.Request.Context())

		stats, err := New(h.db(), kind, config.GetLogger()).ImportBatch(c.Request.Context(), req, actor)
		if err != nil {
			failure(c, http.StatusInternalServerError, "Failed to import batch", stats)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  http.StatusOK,
			"message": fmt.Sprintf("%s imported: %d of %d", kind.Label(), stats.Completed, stats.Total),
			"stats":   stats,
		})
	}
}

// ParseHandler turns an uploaded .xlsx into rows the client can batch.
func (h *Handlers) ParseHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		kind, err := ParseKind(c.Param("kind"))
		if err != nil {
			failure(c, http.StatusNotFound, err.Error(), nil)
			return
		}
		fh, err := c.FormFile("file")
		if err != nil {
			failure(c, http.StatusBadRequest, "file is required", nil)
			return
		}
		if !strings.EqualFold(filepath.Ext(fh.Filename), ".xlsx") {
			failure(c, http.StatusBadRequest, "invalid file type: only .xlsx files are allowed", nil)
			return
		}
		file, err := fh.Open()
		if err != nil {
			failure(c, http.StatusBadRequest, err.Error(), nil)
			return
		}
		defer file.Close()

		rows, err := ReadWorkbook(file, kind)
		if err != nil {
			config.LogError(config.GetLogger(), "importer", "ParseHandler", "read workbook", fh.Filename, err)
			failure(c, http.StatusBadRequest, err.Error(), nil)
			return
		}
		if rows == nil {
			rows = []BatchImportRow{}
		}
		c.JSON(http.StatusOK, gin.H{"data": rows, "total": len(rows)})
	}
}

// ErrorReportHandler renders posted stats as an .xlsx download.
func (h *Handlers) ErrorReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		kind, err := ParseKind(c.Param("kind"))
		if err != nil {
			failure(c, http.StatusNotFound, err.Error(), nil)
			return
		}
		var stats ImportStats
		if err := c.ShouldBindJSON(&stats); err != nil {
			failure(c, http.StatusBadRequest, "invalid request", nil)
			return
		}
		var buf bytes.Buffer
		if err := WriteErrorReport(&buf, kind, stats); err != nil {
			config.LogError(config.GetLogger(), "importer", "ErrorReportHandler", "write report", nil, err)
			failure(c, http.StatusInternalServerError, err.Error(), nil)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", string(kind)+"-errors.xlsx"))
		c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
	}
}
