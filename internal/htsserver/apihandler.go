package htsserver

import (
	"net/http"
	"strings"
	"sync"

	"github.com/jdidion/htsget-server/internal/bgzf"
	"github.com/jdidion/htsget-server/internal/htserror"
	log "github.com/jdidion/htsget-server/internal/htslog"
	"github.com/jdidion/htsget-server/internal/htsmetrics"
	"github.com/jdidion/htsget-server/internal/htsstore"
	"github.com/jdidion/htsget-server/internal/htsticket"
)

// apiHandler issues tickets for one record type. The reads and variants
// handlers differ only in their formats and index-creation strategy.
type apiHandler struct {
	route         string
	defaultFormat string
	indexFormat   string
	store         htsstore.DataStore
	blockSize     int64
	metrics       *htsmetrics.Metrics
	createIndex   func(data htsstore.Resource, index htsstore.Resource) error

	// cacheLock guards only the cache map: concurrent callers for the
	// same key may both compute a ticket, which is harmless because the
	// computation is deterministic.
	cacheLock sync.Mutex
	cache     map[string]string
}

func (h *apiHandler) Handle(subRoute []string, request *http.Request, writer http.ResponseWriter) error {
	if len(subRoute) == 0 {
		return htserror.NotFound("record ID required: /" + h.route + "/<id>")
	}

	query := request.URL.Query()
	format := strings.ToUpper(h.defaultFormat)
	if requested := query.Get("format"); requested != "" {
		format = strings.ToUpper(requested)
	}

	data, index, err := h.store.Resolve(subRoute, format, h.indexFormat)
	if err != nil {
		return htserror.InvalidInput(err.Error())
	}
	if !data.Exists() {
		return htserror.NotFound("no such record: " + strings.Join(subRoute, "/"))
	}

	key := data.ID()
	h.cacheLock.Lock()
	payload, cached := h.cache[key]
	h.cacheLock.Unlock()
	if cached {
		h.metrics.CacheHits.WithLabelValues(h.route).Inc()
		return writeTicket(writer, payload)
	}
	h.metrics.CacheMisses.WithLabelValues(h.route).Inc()

	if !index.Exists() {
		log.Info("building %s index for %s", h.indexFormat, key)
		if err := h.createIndex(data, index); err != nil {
			return err
		}
		if err := h.store.AddResource(index); err != nil {
			return err
		}
		h.metrics.IndexBuilds.WithLabelValues(h.indexFormat).Inc()
	}

	urls, err := h.createTicketURLs(data, index)
	if err != nil {
		return err
	}
	payload, err = htsticket.NewTicket(format, urls).Serialize()
	if err != nil {
		return err
	}

	h.cacheLock.Lock()
	if _, exists := h.cache[key]; !exists {
		h.cache[key] = payload
	}
	h.cacheLock.Unlock()

	return writeTicket(writer, payload)
}

// createTicketURLs splits the file at the header boundary: one
// header-class URL, then body-class URLs of at most blockSize bytes.
func (h *apiHandler) createTicketURLs(data htsstore.Resource, index htsstore.Resource) ([]*htsticket.URL, error) {
	boundary, path, err := bgzf.HeaderBoundary(data, index, h.indexFormat)
	if err != nil {
		return nil, err
	}
	h.metrics.BoundaryResolutions.WithLabelValues(path).Inc()

	size, err := data.Size()
	if err != nil {
		return nil, err
	}
	if boundary > size {
		return nil, htserror.FormatError("header boundary beyond end of file")
	}

	headerURL, err := h.store.TicketURL(data, 0, boundary-1)
	if err != nil {
		return nil, err
	}
	urls := []*htsticket.URL{
		htsticket.NewURL().
			SetURL(headerURL).
			SetHeaders(htsticket.NewHeaders().SetRangeHeader(0, boundary-1)).
			SetClassHeader(),
	}

	for start := boundary; start < size; start += h.blockSize {
		end := start + h.blockSize - 1
		if end >= size {
			end = size - 1
		}
		bodyURL, err := h.store.TicketURL(data, start, end)
		if err != nil {
			return nil, err
		}
		urls = append(urls, htsticket.NewURL().
			SetURL(bodyURL).
			SetHeaders(htsticket.NewHeaders().SetRangeHeader(start, end)).
			SetClassBody())
	}
	return urls, nil
}

func writeTicket(writer http.ResponseWriter, payload string) error {
	writer.Header().Set("Content-Type", ticketContentType)
	writer.WriteHeader(http.StatusOK)
	_, err := writer.Write([]byte(payload))
	return err
}
