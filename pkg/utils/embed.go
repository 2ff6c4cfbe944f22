package utils

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// WidgetScriptPath is where the backend serves the embeddable chat widget.
const WidgetScriptPath = "/public/UserChatBotWidget/userChatBotWidget.js"

// HexEncode encodes every character as its code point in lower-case hex,
// padded to at least two digits. The widget script decodes the same format.
func HexEncode(s string) string {
	var b strings.Builder
	for _, r := range s {
		fmt.Fprintf(&b, "%02x", r)
	}
	return b.String()
}

// EmbedAttributes holds the encoded attribute pairs the widget script reads.
type EmbedAttributes struct {
	ConfigAttr, ConfigValue           string
	BaseAttr, BaseValue               string
	IntegrityAttr, IntegrityValue     string
	CrossoriginAttr, CrossoriginValue string
}

// NewEmbedAttributes encodes configID and baseURL for the widget. now seeds
// the integrity value so every generated snippet differs.
func NewEmbedAttributes(baseURL, configID string, now time.Time) EmbedAttributes {
	millis := strconv.FormatInt(now.UnixMilli(), 10)
	return EmbedAttributes{
		ConfigAttr:       HexEncode("data-enc-config-id"),
		ConfigValue:      HexEncode(HexEncode(configID)),
		BaseAttr:         HexEncode("data-enc-base-url"),
		BaseValue:        HexEncode(HexEncode(baseURL)),
		IntegrityAttr:    HexEncode("data-enc-integrity"),
		IntegrityValue:   HexEncode("sha256-" + HexEncode(millis)),
		CrossoriginAttr:  HexEncode("data-enc-crossorigin"),
		CrossoriginValue: HexEncode("anonymous"),
	}
}

// EmbedScript returns the HTML snippet a customer pastes before </body>.
func EmbedScript(baseURL, configID, companyName string, now time.Time) string {
	if companyName == "" {
		companyName = "AI Chatbot"
	}
	a := NewEmbedAttributes(baseURL, configID, now)

	var b strings.Builder
	fmt.Fprintf(&b, "<!-- %s AI Chatbot - Just copy and paste before </body> -->\n", companyName)
	b.WriteString("<script \n")
	fmt.Fprintf(&b, "  src=\"%s%s\"\n", baseURL, WidgetScriptPath)
	fmt.Fprintf(&b, "  %s=\"%s\"\n", a.ConfigAttr, a.ConfigValue)
	fmt.Fprintf(&b, "  %s=\"%s\"\n", a.BaseAttr, a.BaseValue)
	fmt.Fprintf(&b, "  %s=\"%s\"\n", a.IntegrityAttr, a.IntegrityValue)
	fmt.Fprintf(&b, "  %s=\"%s\"\n", a.CrossoriginAttr, a.CrossoriginValue)
	b.WriteString("  async>\n</script>")
	return b.String()
}

// EmbedReact returns a React component that injects the same script.
func EmbedReact(baseURL, configID string, now time.Time) string {
	a := NewEmbedAttributes(baseURL, configID, now)

	var b strings.Builder
	b.WriteString("// React - Add this component anywhere in your app\n")
	b.WriteString("import { useEffect } from 'react';\n\n")
	b.WriteString("export default function Chatbot() {\n")
	b.WriteString("  useEffect(() => {\n")
	b.WriteString("    const script = document.createElement('script');\n")
	fmt.Fprintf(&b, "    script.src = '%s%s';\n", baseURL, WidgetScriptPath)
	for _, kv := range [][2]string{
		{a.ConfigAttr, a.ConfigValue},
		{a.BaseAttr, a.BaseValue},
		{a.IntegrityAttr, a.IntegrityValue},
		{a.CrossoriginAttr, a.CrossoriginValue},
	} {
		fmt.Fprintf(&b, "    script.setAttribute('%s', '%s');\n", kv[0], kv[1])
	}
	b.WriteString("    script.async = true;\n")
	b.WriteString("    document.body.appendChild(script);\n")
	b.WriteString("  }, []);\n\n")
	b.WriteString("  return null;\n}")
	return b.String()
}

// PreviewURL is the hosted page that renders a chatbot for testing.
func PreviewURL(baseURL, configID string) string {
	return strings.TrimRight(baseURL, "/") + "/embed/user-chatbot?configId=" + url.QueryEscape(configID)
}
