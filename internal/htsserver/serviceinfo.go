package htsserver

import (
	"encoding/json"
	"fmt"
	"net/http"

	log "github.com/jdidion/htsget-server/internal/htslog"
)

type serviceType struct {
	Group    string `json:"group"`
	Artifact string `json:"artifact"`
	Version  string `json:"version"`
}

type serviceInfoHtsget struct {
	Datatype string   `json:"datatype"`
	Formats  []string `json:"formats"`
}

type serviceInfo struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Type        serviceType       `json:"type"`
	Description string            `json:"description"`
	Htsget      serviceInfoHtsget `json:"htsget"`
}

// getServiceInfo serves the GA4GH service-info document for one record
// type.
func getServiceInfo(datatype string, formats []string) http.HandlerFunc {
	version := fmt.Sprintf("%d.%d.%d", supportedVersion[0], supportedVersion[1], supportedVersion[2])
	info := serviceInfo{
		ID:   "org.ga4gh.htsget." + datatype,
		Name: "htsget reference server (" + datatype + ")",
		Type: serviceType{
			Group:    "org.ga4gh",
			Artifact: "htsget",
			Version:  version,
		},
		Description: "Two-phase retrieval of genomic data: ticket issuance followed by ranged data fetches.",
		Htsget: serviceInfoHtsget{
			Datatype: datatype,
			Formats:  formats,
		},
	}
	return func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(writer).Encode(info); err != nil {
			log.Error("writing service info: %v", err)
		}
	}
}
