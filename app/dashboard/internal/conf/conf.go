package conf

type Bootstrap struct {
	Server *Server `json:"server"`
	Auth   *Auth   `json:"auth"`
	Radar  *Radar  `json:"radar"`
}

type Auth struct {
	JwtKey string  `json:"jwt_key"`
	Users  []*User `json:"users"`
}

// User 看板账号，密码以 bcrypt 哈希保存（radar hash-password 生成）
type User struct {
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash"`
}

type Server struct {
	Http *HTTP `json:"http"`
}

type HTTP struct {
	Addr    string `json:"addr"`
	Timeout string `json:"timeout"`
}

// Radar 指向流水线的 settings 文件
type Radar struct {
	Config string `json:"config"`
}
