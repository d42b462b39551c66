package public

import (
	"errors"
	"strconv"
	"strings"

	handlershared "github.com/Rishiupp/pettrack-api/internal/http/handlers/shared"
	"github.com/Rishiupp/pettrack-api/internal/http/response"
	"github.com/Rishiupp/pettrack-api/internal/repository"
	"github.com/Rishiupp/pettrack-api/internal/service"

	"github.com/gin-gonic/gin"
)

// ListMyQRCodes returns the QR codes assigned to the user.
func (h *Handler) ListMyQRCodes(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)

	codes, total, err := h.QRService.ListUserCodes(repository.QRCodeListFilter{
		Page:     page,
		PageSize: pageSize,
		UserID:   uid,
		Status:   strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "qr code list failed", err)
		return
	}

	response.SuccessWithPage(c, codes, response.BuildPagination(page, pageSize, total))
}

// GetQRCode resolves a code to its registration record.
func (h *Handler) GetQRCode(c *gin.Context) {
	code := strings.TrimSpace(c.Param("code"))
	if code == "" {
		respondError(c, response.CodeBadRequest, "code required", nil)
		return
	}

	qr, err := h.QRService.GetByCode(code)
	if err != nil {
		if errors.Is(err, service.ErrQRCodeNotFound) {
			respondError(c, response.CodeNotFound, "qr code not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "qr code fetch failed", err)
		return
	}

	response.Success(c, qr)
}
