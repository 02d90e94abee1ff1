package fbstream

import (
	"fmt"
	"strings"

	pionSDP "github.com/pion/sdp/v3"
)

// Media is one m= line of a session description.
type Media struct {
	Type     string   `json:"type"`
	Port     int      `json:"port"`
	Protocol string   `json:"protocol"`
	Formats  []string `json:"formats"`
	Address  string   `json:"address,omitempty"`
}

// ParseSDP parses the text returned for PRINTSDP.
func ParseSDP(raw string) (*pionSDP.SessionDescription, error) {
	var desc pionSDP.SessionDescription
	// The peer may end lines with a bare LF.
	text := strings.ReplaceAll(strings.ReplaceAll(raw, "\r\n", "\n"), "\n", "\r\n")
	if err := desc.Unmarshal([]byte(text)); err != nil {
		return nil, fmt.Errorf("fbstream: parse sdp: %w", err)
	}
	return &desc, nil
}

// Summarize lists the media sections with the address each one streams to,
// falling back to the session-level connection line.
func Summarize(desc *pionSDP.SessionDescription) []Media {
	if desc == nil {
		return nil
	}
	sessionAddr := connectionAddress(desc.ConnectionInformation)
	out := make([]Media, 0, len(desc.MediaDescriptions))
	for _, md := range desc.MediaDescriptions {
		if md == nil {
			continue
		}
		addr := connectionAddress(md.ConnectionInformation)
		if addr == "" {
			addr = sessionAddr
		}
		out = append(out, Media{
			Type:     md.MediaName.Media,
			Port:     md.MediaName.Port.Value,
			Protocol: strings.Join(md.MediaName.Protos, "/"),
			Formats:  append([]string(nil), md.MediaName.Formats...),
			Address:  addr,
		})
	}
	return out
}

func connectionAddress(ci *pionSDP.ConnectionInformation) string {
	if ci == nil || ci.Address == nil {
		return ""
	}
	return ci.Address.Address
}
