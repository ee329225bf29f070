package rbac

// Default policy. Learners touch only their own assignments and attempts;
// instructors author content and grade; admin gets everything.
var RolePermissions = map[string][]string{
	"learner": {
		"assignment:view-own",
		"attempt:create",
		"attempt:save",
		"attempt:submit",
		"attempt:view-own",
		"result:view-own",
	},
	"instructor": {
		"question:create",
		"question:update",
		"question:delete",
		"question:view",
		"quiz:create",
		"quiz:edit",
		"quiz:publish",
		"quiz:archive",
		"quiz:view",
		"assignment:create",
		"assignment:cancel",
		"assignment:view-all",
		"attempt:view-all",
		"attempt:force-end",
		"attempt:grade",
	},
	"admin": {
		"*", // everything
	},
}
