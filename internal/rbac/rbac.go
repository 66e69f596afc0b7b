package rbac

type Role string
type Action string

const (
	RoleBrokerAdmin   Role = "broker_admin"
	RoleBrokerSupport Role = "broker_support"
	RoleSpecialist    Role = "implementation_specialist"
	RoleOGIInternal   Role = "ogi_internal"
)

const (
	ActionEditConfig          Action = "edit-config"
	ActionPublishConfig       Action = "publish-config"
	ActionEditQuestionSets    Action = "edit-question-sets"
	ActionPublishQuestionSets Action = "publish-question-sets"
	ActionDeleteDocuments     Action = "delete-documents"
	ActionViewInternal        Action = "view-internal"
	ActionViewAnalytics       Action = "view-analytics"
)

func Can(role Role, action Action) bool {
	switch role {
	case RoleOGIInternal:
		return true
	case RoleBrokerAdmin:
		return action != ActionViewInternal
	case RoleBrokerSupport:
		return action == ActionDeleteDocuments || action == ActionViewAnalytics
	case RoleSpecialist:
		return action == ActionEditConfig || action == ActionEditQuestionSets || action == ActionViewAnalytics
	default:
		return false
	}
}

func Normalize(role string) Role {
	switch Role(role) {
	case RoleBrokerAdmin, RoleBrokerSupport, RoleSpecialist, RoleOGIInternal:
		return Role(role)
	default:
		return RoleBrokerSupport
	}
}
