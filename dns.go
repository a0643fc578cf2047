package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/miekg/dns"

	"chunav.chat/completion"
)

const (
	dnsAnswerLimit = 500
	dnsMaxTokens   = 200
	dnsDeadline    = 4 * time.Second
)

// StartDNSServer answers single-shot advisor queries over DNS TXT:
//
//	dig @host "voter-card-kaise-banega" TXT
//
// Responses are history-less, use the default language, and are clipped to
// fit DNS TXT size expectations.
func StartDNSServer(port int, a *app) error {
	dns.HandleFunc(".", func(w dns.ResponseWriter, r *dns.Msg) {
		handleDNS(w, r, a)
	})

	server := &dns.Server{
		Addr: fmt.Sprintf(":%d", port),
		Net:  "udp",
	}

	log.Printf("[DNS] Listening on :%d", port)
	return server.ListenAndServe()
}

func handleDNS(w dns.ResponseWriter, r *dns.Msg, a *app) {
	if !rateLimitAllow(w.RemoteAddr().String()) {
		return
	}
	if len(r.Question) == 0 {
		return
	}

	m := new(dns.Msg)
	m.SetReply(r)
	m.Authoritative = true

	for _, q := range r.Question {
		if q.Qtype != dns.TypeTXT {
			continue
		}

		query := strings.ReplaceAll(strings.TrimSuffix(q.Name, "."), "-", " ")
		prompt := fmt.Sprintf("Answer in %d characters or less, no markdown formatting: %s", dnsAnswerLimit, query)

		systemPrompt := a.registry.SystemPrompt(a.registry.Default(), a.cfg.PromptProtocol)
		msgs := []completion.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		}
		params := completion.Params{
			Model:       a.cfg.Model,
			Temperature: a.cfg.Temperature,
			MaxTokens:   dnsMaxTokens,
		}

		ctx, cancel := context.WithTimeout(context.Background(), dnsDeadline)

		ch := make(chan completion.Chunk)
		go a.llm.Stream(ctx, msgs, params, ch)

		var response strings.Builder
		complete := false
	recv:
		for chunk := range ch {
			switch {
			case chunk.Err != nil:
				log.Printf("[DNS] LLM error: %v", chunk.Err)
				break recv
			case chunk.Done:
				complete = true
				break recv
			default:
				response.WriteString(chunk.Data)
				if response.Len() >= dnsAnswerLimit {
					break recv
				}
			}
		}
		cancel()

		answer := response.String()
		if answer == "" {
			answer = "Request timed out"
		} else if len(answer) > dnsAnswerLimit || !complete {
			answer = clipAnswer(answer, dnsAnswerLimit)
		}

		// TXT strings max out at 255 bytes each.
		var txtStrings []string
		for i := 0; i < len(answer); i += 255 {
			end := i + 255
			if end > len(answer) {
				end = len(answer)
			}
			txtStrings = append(txtStrings, answer[i:end])
		}

		m.Answer = append(m.Answer, &dns.TXT{
			Hdr: dns.RR_Header{
				Name:   q.Name,
				Rrtype: dns.TypeTXT,
				Class:  dns.ClassINET,
				Ttl:    60,
			},
			Txt: txtStrings,
		})
	}

	w.WriteMsg(m)
}

// clipAnswer cuts answer to at most limit bytes including the appended
// ellipsis, backing up to a rune boundary so Devanagari and other multi-byte
// text is never split mid-character.
func clipAnswer(answer string, limit int) string {
	cut := limit - 3
	if len(answer) > cut {
		for cut > 0 && !utf8.RuneStart(answer[cut]) {
			cut--
		}
		answer = answer[:cut]
	}
	return answer + "..."
}
