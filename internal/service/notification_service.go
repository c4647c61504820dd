package service

import (
	"encoding/json"

	"vendora/internal/domain"
	"vendora/internal/models"
	"vendora/internal/repository"
	"vendora/internal/ws"
)

// NotificationService persists notifications and pushes them over the order
// event feed. It carries plain data payloads; rendering is the client's problem.
type NotificationService struct {
	repo *repository.NotificationRepository
	hub  *ws.Hub
}

func NewNotificationService(repo *repository.NotificationRepository, hub *ws.Hub) *NotificationService {
	return &NotificationService{repo: repo, hub: hub}
}

func (s *NotificationService) Notify(userID uint, notifType, title, body string, data map[string]interface{}) error {
	var dataJSON string
	if data != nil {
		b, _ := json.Marshal(data)
		dataJSON = string(b)
	}
	err := s.repo.Create(&models.Notification{
		UserID: userID,
		Type:   notifType,
		Title:  title,
		Body:   body,
		Data:   dataJSON,
	})
	if err != nil {
		return err
	}
	if s.hub != nil {
		s.hub.BroadcastToUser(userID, map[string]interface{}{
			"type":  notifType,
			"title": title,
			"body":  body,
			"data":  data,
		})
	}
	return nil
}

func (s *NotificationService) NotifyPaymentReceived(userID, orderID uint, amountCents int64, currency string) error {
	return s.Notify(userID, domain.NotifPaymentReceived, "Payment received", "Your payment was received and your order is confirmed.",
		map[string]interface{}{"order_id": orderID, "amount_cents": amountCents, "currency": currency})
}

func (s *NotificationService) NotifyShipped(userID, orderID uint) error {
	return s.Notify(userID, domain.NotifOrderShipped, "Order shipped", "Your order is on its way.",
		map[string]interface{}{"order_id": orderID})
}

func (s *NotificationService) NotifyCancelled(userID, orderID uint, refundCents, penaltyCents int64) error {
	return s.Notify(userID, domain.NotifOrderCancelled, "Order cancelled", "Your order was cancelled.",
		map[string]interface{}{"order_id": orderID, "refund_cents": refundCents, "penalty_cents": penaltyCents})
}

func (s *NotificationService) NotifyTimeout(userID, orderID uint) error {
	return s.Notify(userID, domain.NotifOrderTimeout, "Order expired", "Your order expired before payment completed.",
		map[string]interface{}{"order_id": orderID})
}

func (s *NotificationService) NotifyUnderpayment(userID, orderID uint, shortfallCents int64, invoiceNumber string) error {
	return s.Notify(userID, domain.NotifUnderpayment, "Payment incomplete", "We received less than the required amount. A follow-up invoice covers the difference.",
		map[string]interface{}{"order_id": orderID, "shortfall_cents": shortfallCents, "invoice_number": invoiceNumber})
}
