package gateway

import "fmt"

// Applicant-facing notice texts. Formatting and localization of anything
// richer belongs to the transport side.
const (
	noticeNumericOnly  = "Send your numeric UID only."
	noticeNotReferral  = "UID not valid or not a referral."
	noticeVerified     = "✔️ UID verified. Access approved."
	noticeStoreFailure = "Something went wrong saving your membership. Please send your UID again."
	noticeReportQueued = "Report queued."
)

func instructionNotice(group string) string {
	return fmt.Sprintf(
		"📌 Welcome to %s. Send me your partner UID (numbers only) to validate access.",
		group,
	)
}

func startNotice(group string) string {
	return fmt.Sprintf(
		"👋 Request access to the %s group, then send me your partner UID in private.",
		group,
	)
}

func welcomeNotice(group, mention string) string {
	return fmt.Sprintf(
		"👋 Welcome %s to %s.\n\n"+
			"Here you will find exclusive bots, advanced strategies and "+
			"professional trading tips, plus personalized partner support.\n\n"+
			"Let's go! 🚀",
		mention,
		group,
	)
}
