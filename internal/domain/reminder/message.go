package reminder

import (
	"fmt"
	"strings"

	"github.com/rt44/backend/internal/domain/shared/valueobject"
)

// Sender identifies the association in message text
type Sender struct {
	// Association appears in the body, e.g. "RT-44"
	Association string
	// Signature closes the message, e.g. "Ketua RT 44"
	Signature string
}

// Recipient is who the message is addressed to
type Recipient struct {
	OwnerName  string
	HouseLabel string
}

// FormatLine renders "• *Januari*: Rp 160.000", with " (sisa)" on partially paid months
func FormatLine(l Line) string {
	s := fmt.Sprintf("• *%s*: %s", l.Period.MonthName(), valueobject.FormatRupiah(l.Remaining))
	if l.Partial {
		s += " (sisa)"
	}
	return s
}

// ComposeMessage renders the reminder text for a summary. Automatic messages
// say so in the opening line.
func ComposeMessage(from Sender, to Recipient, s *Summary, automatic bool) string {
	lines := make([]string, 0, len(s.Lines))
	for _, l := range s.Lines {
		lines = append(lines, FormatLine(l))
	}

	informer := "Pengurus " + from.Association
	if automatic {
		informer = "Sistem *Otomatis* " + from.Association
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Assalamu'alaikum Bapak/Ibu %s,\n\n", to.OwnerName)
	fmt.Fprintf(&b, "%s menginformasikan tagihan iuran tahun %d untuk rumah %s yang belum lunas.\n\n",
		informer, s.Year, to.HouseLabel)
	fmt.Fprintf(&b, "📌 *Rincian Tagihan (%d bulan):*\n", s.MonthCount)
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "💰 *Total: %s*\n\n", valueobject.FormatRupiah(s.Total))
	b.WriteString("Mohon untuk segera melakukan pembayaran. Abaikan pesan ini jika Bapak/Ibu sudah/sedang melakukan pembayaran hari ini.\n\n")
	b.WriteString("Terima kasih atas partisipasi dan kerja samanya. 🙏\n\n")
	b.WriteString("Salam,\n")
	fmt.Fprintf(&b, "*%s*", from.Signature)
	return b.String()
}
