package auth

import "github.com/amosgichamba/teabroker-backend/pkg/enums"

// Action names a privileged capability. Controllers and services go through
// Can instead of comparing role strings inline, so the grant table is the
// single place access rules live.
type Action string

const (
	ActionManageStocks         Action = "stocks:manage"
	ActionAdjustStock          Action = "stocks:adjust"
	ActionImportStocks         Action = "stocks:import"
	ActionExportStocks         Action = "stocks:export"
	ActionAssignStock          Action = "stocks:assign"
	ActionViewAllShipments     Action = "shipments:view_all"
	ActionUpdateShipmentStatus Action = "shipments:status"
	ActionManageContacts       Action = "contacts:manage"
	ActionListUsers            Action = "users:list"
)

var grants = map[Action]func(enums.Role) bool{
	ActionManageStocks:         adminOnly,
	ActionAdjustStock:          adminOnly,
	ActionImportStocks:         adminOnly,
	ActionExportStocks:         adminOnly,
	ActionAssignStock:          adminOnly,
	ActionViewAllShipments:     elevated,
	ActionUpdateShipmentStatus: elevated,
	ActionManageContacts:       adminOnly,
	ActionListUsers:            adminOnly,
}

func adminOnly(r enums.Role) bool { return r == enums.RoleAdmin }
func elevated(r enums.Role) bool  { return r.IsElevated() }

// Can reports whether the role holds the capability. Unknown actions are
// denied.
func Can(role enums.Role, action Action) bool {
	check, ok := grants[action]
	if !ok {
		return false
	}
	return check(role)
}

// CanManageShipment reports whether the actor may read or mutate a shipment:
// the owner always can, elevated roles can for any shipment.
func CanManageShipment(role enums.Role, actorCognitoID, ownerCognitoID string) bool {
	if actorCognitoID != "" && actorCognitoID == ownerCognitoID {
		return true
	}
	return role.IsElevated()
}
