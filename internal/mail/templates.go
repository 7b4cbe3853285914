package mail

// 内置模板名。
const (
	TemplateJobOffer = "job_offer"
	TemplateFollowUp = "follow_up"
	TemplateCustom   = "custom"
)

// DefaultMemberName: 未提供称呼时的默认值。
const DefaultMemberName = "Valued Member"

var builtin = map[string]Source{
	TemplateJobOffer: {
		Subject: "Job Opportunity - Products Optimizer",
		Body: `Dear {{.MemberName}},

I hope this email finds you well.

I am pleased to share an exciting job opportunity for a Products Optimizer position. Please find the detailed job description attached as a PDF document.

Key highlights:
• Position: Products Optimizer
• Location: Online remote job
• Earnings increase with VIP levels. For more details read the attached PDF.

Please review the attached document carefully and let me know if you're interested in proceeding with this opportunity.

Looking forward to your positive response.

Best regards,
{{.Sender}}`,
	},
	TemplateFollowUp: {
		Subject: "Follow-up: Products Optimizer Position",
		Body: `Dear {{.MemberName}},

I hope you're doing well.

I wanted to follow up on the Products Optimizer position I shared with you recently. Have you had a chance to review the job details in the attached PDF?

If you have any questions or need clarification about the position, please don't hesitate to reach out to me.

I'm here to assist you throughout the application process.

Best regards,
{{.Sender}}`,
	},
	TemplateCustom: {},
}
