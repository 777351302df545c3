package email

const (
	subjectMeetingConfirmationFmt = "Confirmed: your activation call on %s"
	subjectMeetingRescheduledFmt  = "New time for your activation call: %s"
	subjectMeetingReminderFmt     = "Reminder: activation call on %s"
	subjectMeetingCanceled        = "Your activation call was canceled"
	subjectFollowupDueFmt         = "Follow-up due: %s"
)
