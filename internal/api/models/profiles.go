package models

import "ctchen222/todo-api/internal/mapper"

const (
	KindUser   mapper.Kind = "User"
	KindUserVm mapper.Kind = "UserVm"
	KindTodo   mapper.Kind = "Todo"
	KindTodoVm mapper.Kind = "TodoVm"
)

var (
	UserToVm = mapper.Pair{From: KindUser, To: KindUserVm}
	TodoToVm = mapper.Pair{From: KindTodo, To: KindTodoVm}
)

// RegisterProfiles registers every entity to view model projection.
func RegisterProfiles(m *mapper.Mapper) {
	mapper.Register(m, UserToVm, func(u *User) UserVm {
		return UserVm{
			BaseVm:    baseVm(&u.Base),
			Username:  u.Username,
			FirstName: u.FirstName,
			LastName:  u.LastName,
			FullName:  u.FullName(),
			Role:      u.Role,
		}
	})
	mapper.Register(m, TodoToVm, func(t *Todo) TodoVm {
		return TodoVm{
			BaseVm:      baseVm(&t.Base),
			Content:     t.Content,
			Level:       t.Level,
			IsCompleted: t.IsCompleted,
		}
	})
}
