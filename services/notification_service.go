package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/bitecraft/storefront-api/models"
	amqp "github.com/rabbitmq/amqp091-go"
	"gorm.io/gorm"
)

// OrderNotification is the payload sent to a customer when their order changes status
type OrderNotification struct {
	To            string `json:"to"`
	CustomerName  string `json:"customerName"`
	CustomerPhone string `json:"customerPhone"`
	OrderID       string `json:"orderId"`
	Status        string `json:"status"`
	OrderType     string `json:"orderType"`
}

// NotificationResult reports which channels a notifier delivered to
type NotificationResult struct {
	Success   bool   `json:"success"`
	EmailSent bool   `json:"emailSent"`
	SMSSent   bool   `json:"smsSent"`
	Message   string `json:"message,omitempty"`
}

// Notifier delivers order status notifications
type Notifier interface {
	Notify(ctx context.Context, n OrderNotification) (*NotificationResult, error)
	Name() string
}

var notifierInstance Notifier

// InitNotifier sets the process-wide notifier
func InitNotifier(n Notifier) Notifier {
	notifierInstance = n
	return notifierInstance
}

// GetNotifier returns the initialized notifier
func GetNotifier() Notifier {
	return notifierInstance
}

// RenderedNotification is the message text for one notification
type RenderedNotification struct {
	Subject  string
	HTMLBody string
	SMSText  string
}

var (
	confirmedEmail = template.Must(template.New("confirmed").Parse(
		`<h2>Order confirmed</h2>
<p>Hi {{.CustomerName}},</p>
<p>Your payment was received and order <strong>#{{.ShortID}}</strong> is confirmed. We are preparing it now.</p>
<p>{{if .Delivery}}We will let you know when it is on its way.{{else}}We will let you know when it is ready for pickup.{{end}}</p>
<p>Thank you for ordering with BiteCraft.</p>`))

	readyEmail = template.Must(template.New("ready").Parse(
		`<h2>Your order is ready</h2>
<p>Hi {{.CustomerName}},</p>
<p>Order <strong>#{{.ShortID}}</strong> is ready{{if .Delivery}} and will be delivered shortly{{else}} for pickup{{end}}.</p>
<p>Enjoy your meal!</p>`))
)

type notificationView struct {
	CustomerName string
	ShortID      string
	Delivery     bool
}

// RenderOrderNotification renders the email and SMS text for confirmed and ready orders
func RenderOrderNotification(n OrderNotification) (*RenderedNotification, error) {
	view := notificationView{
		CustomerName: n.CustomerName,
		ShortID:      shortOrderID(n.OrderID),
		Delivery:     n.OrderType == string(models.OrderTypeDelivery),
	}
	if view.CustomerName == "" {
		view.CustomerName = "there"
	}

	var (
		tmpl    *template.Template
		subject string
		sms     string
	)
	switch models.OrderStatus(n.Status) {
	case models.OrderStatusConfirmed:
		tmpl = confirmedEmail
		subject = fmt.Sprintf("Order #%s confirmed", view.ShortID)
		sms = fmt.Sprintf("BiteCraft: your order #%s is confirmed and being prepared.", view.ShortID)
	case models.OrderStatusReady:
		tmpl = readyEmail
		subject = fmt.Sprintf("Order #%s is ready", view.ShortID)
		if view.Delivery {
			sms = fmt.Sprintf("BiteCraft: your order #%s is ready and on its way.", view.ShortID)
		} else {
			sms = fmt.Sprintf("BiteCraft: your order #%s is ready for pickup.", view.ShortID)
		}
	default:
		return nil, ErrUnsupportedStatus
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, view); err != nil {
		return nil, fmt.Errorf("failed to render %s notification: %w", n.Status, err)
	}

	return &RenderedNotification{Subject: subject, HTMLBody: body.String(), SMSText: sms}, nil
}

func shortOrderID(id string) string {
	if len(id) > 8 {
		return strings.ToUpper(id[:8])
	}
	return strings.ToUpper(id)
}

// LogNotifier renders notifications and writes them to the log instead of sending them
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Name() string { return "log" }

// Notify renders the message and logs it
func (n *LogNotifier) Notify(ctx context.Context, msg OrderNotification) (*NotificationResult, error) {
	rendered, err := RenderOrderNotification(msg)
	if err != nil {
		return nil, err
	}

	result := &NotificationResult{Success: true}
	if strings.Contains(msg.To, "@") {
		log.Printf("[NOTIFY] email to=%s subject=%q", msg.To, rendered.Subject)
		result.EmailSent = true
	}
	if msg.CustomerPhone != "" {
		log.Printf("[NOTIFY] sms to=%s text=%q", msg.CustomerPhone, rendered.SMSText)
		result.SMSSent = true
	}
	return result, nil
}

// NotifySecretHeader carries the shared secret the dispatch endpoint requires
const NotifySecretHeader = "X-Notify-Secret"

// HTTPNotifier posts notifications to the dispatch endpoint of a notification service
type HTTPNotifier struct {
	url    string
	secret string
	client *http.Client
}

func NewHTTPNotifier(url, secret string, timeout time.Duration) *HTTPNotifier {
	return &HTTPNotifier{
		url:    url,
		secret: secret,
		client: &http.Client{Timeout: timeout},
	}
}

func (n *HTTPNotifier) Name() string { return "http" }

// Notify posts the payload as JSON and decodes the dispatch result
func (n *HTTPNotifier) Notify(ctx context.Context, msg OrderNotification) (*NotificationResult, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if n.secret != "" {
		req.Header.Set(NotifySecretHeader, n.secret)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send notification: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read notification response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("notification service returned %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var result NotificationResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("invalid notification response: %w", err)
	}
	return &result, nil
}

// amqpChannel is the part of *amqp.Channel the notifier uses
type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPNotifier publishes notifications to a fanout exchange consumed by mail/SMS workers
type AMQPNotifier struct {
	conn        *amqp.Connection
	exchange    string
	openChannel func() (amqpChannel, error)
}

// NewAMQPNotifier dials the broker and declares the notification exchange
func NewAMQPNotifier(url, exchange string) (*AMQPNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to AMQP broker: %w", err)
	}

	n := newAMQPNotifier(exchange, func() (amqpChannel, error) {
		return conn.Channel()
	})
	n.conn = conn

	if err := n.declare(); err != nil {
		conn.Close()
		return nil, err
	}
	return n, nil
}

func newAMQPNotifier(exchange string, open func() (amqpChannel, error)) *AMQPNotifier {
	return &AMQPNotifier{exchange: exchange, openChannel: open}
}

func (n *AMQPNotifier) declare() error {
	ch, err := n.openChannel()
	if err != nil {
		return fmt.Errorf("failed to open AMQP channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(n.exchange, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", n.exchange, err)
	}
	return nil
}

func (n *AMQPNotifier) Name() string { return "amqp" }

// Notify publishes the payload; delivery is left to downstream consumers
func (n *AMQPNotifier) Notify(ctx context.Context, msg OrderNotification) (*NotificationResult, error) {
	if _, err := RenderOrderNotification(msg); err != nil {
		return nil, err
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode notification: %w", err)
	}

	ch, err := n.openChannel()
	if err != nil {
		return nil, fmt.Errorf("failed to open AMQP channel: %w", err)
	}
	defer ch.Close()

	err = ch.PublishWithContext(ctx, n.exchange, "", false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.OrderID + ":" + msg.Status,
		Timestamp:    time.Now(),
		Type:         "order." + msg.Status,
		Body:         body,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to publish notification: %w", err)
	}

	return &NotificationResult{Success: true, Message: "queued"}, nil
}

// Close closes the broker connection
func (n *AMQPNotifier) Close() error {
	if n.conn == nil {
		return nil
	}
	return n.conn.Close()
}

// NotificationDispatcher sends status notifications after an order change has been
// committed. It never fails the caller: errors are logged and recorded in notification_logs.
type NotificationDispatcher struct {
	db       *gorm.DB
	notifier Notifier
	timeout  time.Duration
}

func NewNotificationDispatcher(db *gorm.DB, notifier Notifier, timeout time.Duration) *NotificationDispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &NotificationDispatcher{db: db, notifier: notifier, timeout: timeout}
}

// NotificationFor builds the payload for an order with its customer loaded
func NotificationFor(order *models.Order) OrderNotification {
	n := OrderNotification{
		OrderID:   order.ID,
		Status:    string(order.Status),
		OrderType: string(order.OrderType),
	}
	if order.Customer != nil {
		n.CustomerName = order.Customer.Name
		n.CustomerPhone = order.Customer.Phone
		n.To = order.Customer.Email
		if n.To == "" {
			n.To = order.Customer.Phone
		}
	}
	return n
}

// OrderStatusChanged notifies the customer of orderID's current status if it is one
// customers are told about
func (d *NotificationDispatcher) OrderStatusChanged(ctx context.Context, orderID string) {
	if d == nil || d.notifier == nil {
		return
	}

	var order models.Order
	if err := d.db.WithContext(ctx).Preload("Customer").First(&order, "id = ?", orderID).Error; err != nil {
		log.Printf("[NOTIFY] failed to load order %s for notification: %v", orderID, err)
		return
	}
	if !order.Status.NotifiesCustomer() {
		return
	}

	msg := NotificationFor(&order)

	// Detached from the request so a client disconnect doesn't cancel the send
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	result, err := d.notifier.Notify(sendCtx, msg)

	entry := models.NotificationLog{
		OrderID:     order.ID,
		OrderStatus: order.Status,
		Recipient:   msg.To,
		Driver:      d.notifier.Name(),
		Status:      models.NotificationSent,
	}
	if err != nil {
		log.Printf("[NOTIFY] failed to notify customer for order %s (%s): %v", order.ID, order.Status, err)
		entry.Status = models.NotificationFailed
		entry.Error = err.Error()
	} else if result != nil {
		entry.EmailSent = result.EmailSent
		entry.SMSSent = result.SMSSent
		if !result.Success {
			entry.Status = models.NotificationFailed
			entry.Error = result.Message
		}
	}

	if err := d.db.WithContext(context.WithoutCancel(ctx)).Create(&entry).Error; err != nil {
		log.Printf("[NOTIFY] failed to record notification for order %s: %v", order.ID, err)
	}
}
