package repository

import (
	"gorm.io/gorm"

	"github.com/photoflare/galleria/app/models"
)

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates an order repository backed by GORM
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(order *models.Order) error {
	return r.db.Create(order).Error
}

func (r *orderRepository) GetByID(id uint) (*models.Order, error) {
	var order models.Order
	if err := r.db.Preload("Items").First(&order, id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) GetByUUID(uuid string) (*models.Order, error) {
	var order models.Order
	if err := r.db.Preload("Items").Where("uuid = ?", uuid).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) GetByPaymentReference(ref string) (*models.Order, error) {
	var order models.Order
	if err := r.db.Preload("Items").Where("payment_reference = ?", ref).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) GetCompletedBySessionAndClient(sessionID uint, clientKey string) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.Preload("Items").
		Where("session_id = ? AND client_key = ? AND status = ?", sessionID, clientKey, models.OrderStatusCompleted).
		Order("created_at DESC").
		Find(&orders).Error
	return orders, err
}

func (r *orderRepository) Update(order *models.Order) error {
	return r.db.Save(order).Error
}
