package shared

// Permission names use the resource+action convention throughout. The
// authorization engine treats the two halves separately; these constants
// exist so route declarations and seeds never drift apart.
const (
	PermUserView = "user+view"
	PermUserEdit = "user+edit"

	PermRoleView = "role+view"
	PermRoleEdit = "role+edit"

	PermPermissionView = "permission+view"
	PermPermissionEdit = "permission+edit"

	PermCommitteeView   = "committee+view"
	PermCommitteeAdd    = "committee+add"
	PermCommitteeEdit   = "committee+edit"
	PermCommitteeDelete = "committee+delete"

	PermMemberEdit     = "member+edit"
	PermMeetingEdit    = "meeting+edit"
	PermAttendanceEdit = "attendance+edit"

	PermFileUploadView   = "fileupload+view"
	PermFileUploadAdd    = "fileupload+add"
	PermFileUploadDelete = "fileupload+delete"

	PermListservView = "listserv+view"
	PermListservEdit = "listserv+edit"

	PermADSearchView = "adsearch+view"

	PermReportView = "report+view"

	PermPanoptoSchedulerAdd = "panopto_scheduler+add"

	PermInstrumentView = "instrument+view"
	PermInstrumentEdit = "instrument+edit"

	PermAuditView = "audit+view"
)

// AllPermissions lists every permission the seed installs.
func AllPermissions() []string {
	return []string{
		PermUserView, PermUserEdit,
		PermRoleView, PermRoleEdit,
		PermPermissionView, PermPermissionEdit,
		PermCommitteeView, PermCommitteeAdd, PermCommitteeEdit, PermCommitteeDelete,
		PermMemberEdit, PermMeetingEdit, PermAttendanceEdit,
		PermFileUploadView, PermFileUploadAdd, PermFileUploadDelete,
		PermListservView, PermListservEdit,
		PermADSearchView,
		PermReportView,
		PermPanoptoSchedulerAdd,
		PermInstrumentView, PermInstrumentEdit,
		PermAuditView,
	}
}
