package constants

// Static route constants
const (
	APIRoute            = "/api"
	APIV1Route          = "/v1"
	GalleryGroupRoute   = "/galleries/:slug"
	OwnerGalleryRoute   = "/owner/galleries"
	ConsumeTokenRoute   = "/downloads/:token"
	PaymentWebhookRoute = "/webhooks/payment"
)
