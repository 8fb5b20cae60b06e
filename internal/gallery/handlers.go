package gallery

import (
	"context"
	"net/http"

	"github.com/allenac86/spooky-days-twitter/internal/storage"
	"github.com/allenac86/spooky-days-twitter/internal/twitter"
	"github.com/gin-gonic/gin"
)

// ObjectLister lists stored images and resolves their public URLs.
type ObjectLister interface {
	ListObjects(ctx context.Context, prefix string) ([]storage.ObjectInfo, error)
	ObjectURL(key string) string
}

// AccountService fetches the authenticated social account.
type AccountService interface {
	Me(ctx context.Context) (*twitter.Account, error)
}

// imageEntry is one gallery listing row
type imageEntry struct {
	storage.ObjectInfo
	URL string `json:"url"`
}

// OriginGuard rejects requests that do not carry the shared origin header.
// The gallery frontend sets the header; everything else gets a 403. An
// unconfigured guard fails closed.
func OriginGuard(headerName, headerValue string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if headerName == "" || headerValue == "" || c.GetHeader(headerName) != headerValue {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}
		c.Next()
	}
}

// ListImagesHandler returns all generated images under the image prefix.
func ListImagesHandler(store ObjectLister) gin.HandlerFunc {
	return func(c *gin.Context) {
		objects, err := store.ListObjects(c.Request.Context(), storage.ImagePrefix)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list images"})
			return
		}

		images := make([]imageEntry, 0, len(objects))
		for _, obj := range objects {
			images = append(images, imageEntry{
				ObjectInfo: obj,
				URL:        store.ObjectURL(obj.Key),
			})
		}

		c.JSON(http.StatusOK, gin.H{"images": images})
	}
}

// GetAccountHandler returns public metrics for the posting account.
func GetAccountHandler(svc AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		account, err := svc.Me(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch account data"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"twitterData": account})
	}
}
