package controllers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/photoflare/galleria/app/models"
	"github.com/photoflare/galleria/app/repository"
	"github.com/photoflare/galleria/internal/pkg/database"
)

const historyPageSize = 50

// HandleDownloadHistory lists the audit log for a gallery, newest first.
func HandleDownloadHistory(c *fiber.Ctx) error {
	session, _, err := resolveOwnedSession(c)
	if err != nil {
		return responseError(err)
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	if page < 1 {
		page = 1
	}

	repos := repository.GetGlobalRepositories()
	entries, err := repos.History.GetBySessionID(session.ID, (page-1)*historyPageSize, historyPageSize)
	if err != nil {
		log.Errorf("[Owner] history lookup failed for session %d: %v", session.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "INTERNAL_ERROR", "message": "Could not load download history",
		})
	}
	total, err := repos.History.CountBySessionID(session.ID)
	if err != nil {
		log.Errorf("[Owner] history count failed for session %d: %v", session.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "INTERNAL_ERROR", "message": "Could not load download history",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"entries": entries,
		"total":   total,
		"page":    page,
	})
}

// HandleRevenueSummary reports the running revenue aggregate for a gallery.
func HandleRevenueSummary(c *fiber.Ctx) error {
	session, _, err := resolveOwnedSession(c)
	if err != nil {
		return responseError(err)
	}

	var aggregate models.RevenueAggregate
	dberr := database.GetDB().WithContext(c.Context()).
		Where("session_id = ?", session.ID).First(&aggregate).Error
	if dberr != nil {
		if errors.Is(dberr, gorm.ErrRecordNotFound) {
			// No completed order yet.
			return c.Status(fiber.StatusOK).JSON(models.RevenueAggregate{SessionID: session.ID})
		}
		log.Errorf("[Owner] revenue lookup failed for session %d: %v", session.ID, dberr)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "INTERNAL_ERROR", "message": "Could not load revenue summary",
		})
	}
	return c.Status(fiber.StatusOK).JSON(aggregate)
}
